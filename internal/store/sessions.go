package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wilbur182/chatvault/internal/extractor"
	"github.com/wilbur182/chatvault/internal/model"
)

// ImportResult reports what ImportSession actually did, letting a bulk
// sweep (cmd/chatvault's import command) tally outcomes without needing to
// inspect the error return for the common "already imported" case.
type ImportResult struct {
	SessionID          string
	AlreadyImported    bool
	MessageCount       int
	ToolOperationCount int
	TurnCount          int
}

// ImportSession persists one source file's worth of data — the session
// row, its messages, extracted tool operations, and detected turns — as a
// single transaction, so a failure partway through never leaves a partial
// session visible to readers. Re-importing a file already recorded under
// the same (provider, file_hash) natural key is a no-op that reports
// AlreadyImported rather than erroring or duplicating rows.
func (s *Store) ImportSession(ctx context.Context, sess *model.Session, messages []model.Message, ops []extractor.Operation, turns []model.Turn, now time.Time) (*ImportResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("chatvault: begin import transaction: %w", err)
	}
	defer tx.Rollback()

	var existingID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM chat_sessions WHERE provider = ? AND file_hash = ?`,
		string(sess.Provider), sess.FileHash).Scan(&existingID)
	switch {
	case err == nil:
		return &ImportResult{SessionID: existingID, AlreadyImported: true}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("chatvault: check natural key: %w", err)
	}

	var projectID sql.NullString
	if sess.ProjectName != "" {
		id, perr := upsertProject(ctx, tx, sess.ProjectName, "", totalTokens(sess, messages), now)
		if perr != nil {
			return nil, perr
		}
		projectID = sql.NullString{String: id, Valid: id != ""}
	}

	if err := sess.SetMessageCount(len(messages)); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chat_sessions(id, provider, project_id, project_name, file_path, file_hash,
			start_time, end_time, message_count, token_count, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, string(sess.Provider), nullableString(projectID), sess.ProjectName, sess.FilePath, sess.FileHash,
		sess.StartTime, nullableTime(sess.EndTime), sess.MessageCount, nullableInt64(sess.TokenCount),
		string(sess.State), sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("chatvault: insert session: %w", err)
	}

	for _, m := range messages {
		if err := insertMessage(ctx, tx, m); err != nil {
			return nil, err
		}
	}

	for _, op := range ops {
		if err := insertToolOperation(ctx, tx, op.ToolOperation); err != nil {
			return nil, err
		}
	}

	for _, t := range turns {
		if err := insertTurn(ctx, tx, t); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("chatvault: commit import: %w", err)
	}

	return &ImportResult{
		SessionID:          sess.ID,
		MessageCount:       len(messages),
		ToolOperationCount: len(ops),
		TurnCount:          len(turns),
	}, nil
}

func totalTokens(sess *model.Session, messages []model.Message) int64 {
	if sess.TokenCount != nil {
		return *sess.TokenCount
	}
	var total int64
	for _, m := range messages {
		if m.TokenCount != nil {
			total += *m.TokenCount
		}
	}
	return total
}

func insertMessage(ctx context.Context, tx *sql.Tx, m model.Message) error {
	toolUses, err := json.Marshal(m.ToolUses)
	if err != nil {
		return fmt.Errorf("chatvault: marshal tool_uses: %w", err)
	}
	toolResults, err := json.Marshal(m.ToolResults)
	if err != nil {
		return fmt.Errorf("chatvault: marshal tool_results: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages(id, session_id, role, content, timestamp, sequence_number,
			token_count, tool_uses, tool_results, tool_operation_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, string(m.Role), m.Content, m.Timestamp, m.SequenceNumber,
		nullableInt64(m.TokenCount), string(toolUses), string(toolResults), m.ToolOperationID)
	if err != nil {
		return fmt.Errorf("chatvault: insert message: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO messages_fts(rowid, content) SELECT rowid, content FROM messages WHERE id = ?`, m.ID)
	if err != nil {
		return fmt.Errorf("chatvault: index message content: %w", err)
	}
	return nil
}

func insertToolOperation(ctx context.Context, tx *sql.Tx, op model.ToolOperation) error {
	var fileMetadata sql.NullString
	if op.FileMetadata != nil {
		b, err := json.Marshal(op.FileMetadata)
		if err != nil {
			return fmt.Errorf("chatvault: marshal file_metadata: %w", err)
		}
		fileMetadata = sql.NullString{String: string(b), Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tool_operations(id, session_id, tool_use_id, tool_name, timestamp,
			file_metadata, success, result_summary, raw_input, raw_result, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.ID, op.SessionID, op.ToolUseID, op.ToolName, op.Timestamp,
		fileMetadata, nullableBool(op.Success), op.ResultSummary, maybeCompress(op.RawInput), maybeCompress(op.RawResult), op.CreatedAt)
	if err != nil {
		return fmt.Errorf("chatvault: insert tool_operation: %w", err)
	}
	return nil
}

func insertTurn(ctx context.Context, tx *sql.Tx, t model.Turn) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("chatvault: marshal turn payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO detected_turns(id, session_id, turn_number, start_sequence, end_sequence, payload)
		VALUES (?, ?, ?, ?, ?, ?)`,
		fmt.Sprintf("%s-turn-%d", t.SessionID, t.TurnNumber), t.SessionID, t.TurnNumber,
		t.StartSequence, t.EndSequence, string(payload))
	if err != nil {
		return fmt.Errorf("chatvault: insert detected_turn: %w", err)
	}
	return nil
}

// DeleteSession removes a session and cascades to its messages, tool
// operations, detected turns, and summaries, relying on the schema's ON
// DELETE CASCADE foreign keys.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("chatvault: delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("chatvault: delete session rows affected: %w", err)
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func nullableString(n sql.NullString) any {
	if !n.Valid {
		return nil
	}
	return n.String
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableBool(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}
