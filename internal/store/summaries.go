package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wilbur182/chatvault/internal/model"
)

// SaveTurnSummary upserts one LLM-generated turn enrichment, keyed by
// (session_id, turn_number).
func (s *Store) SaveTurnSummary(ctx context.Context, ts model.TurnSummary) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	keyTopics, err := json.Marshal(ts.KeyTopics)
	if err != nil {
		return fmt.Errorf("chatvault: marshal key_topics: %w", err)
	}
	decisions, err := json.Marshal(ts.DecisionsMade)
	if err != nil {
		return fmt.Errorf("chatvault: marshal decisions_made: %w", err)
	}
	concepts, err := json.Marshal(ts.CodeConcepts)
	if err != nil {
		return fmt.Errorf("chatvault: marshal code_concepts: %w", err)
	}
	var turnType string
	if ts.TurnType != nil {
		turnType = string(*ts.TurnType)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO turn_summaries(id, session_id, turn_number, start_sequence, end_sequence,
			user_intent, assistant_action, summary, turn_type, key_topics, decisions_made,
			code_concepts, model_used, prompt_version, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, turn_number) DO UPDATE SET
			user_intent = excluded.user_intent,
			assistant_action = excluded.assistant_action,
			summary = excluded.summary,
			turn_type = excluded.turn_type,
			key_topics = excluded.key_topics,
			decisions_made = excluded.decisions_made,
			code_concepts = excluded.code_concepts,
			model_used = excluded.model_used,
			prompt_version = excluded.prompt_version,
			generated_at = excluded.generated_at`,
		fmt.Sprintf("%s-turnsummary-%d", ts.SessionID, ts.TurnNumber), ts.SessionID, ts.TurnNumber,
		ts.StartSequence, ts.EndSequence, ts.UserIntent, ts.AssistantAction, ts.Summary, turnType,
		string(keyTopics), string(decisions), string(concepts), ts.ModelUsed, ts.PromptVersion, ts.GeneratedAt)
	if err != nil {
		return fmt.Errorf("chatvault: upsert turn_summary: %w", err)
	}
	return nil
}

// SaveSessionSummary upserts the single whole-session enrichment.
func (s *Store) SaveSessionSummary(ctx context.Context, ss model.SessionSummary) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	technologies, err := json.Marshal(ss.TechnologiesUsed)
	if err != nil {
		return fmt.Errorf("chatvault: marshal technologies_used: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_summaries(session_id, title, summary, primary_goal, outcome, technologies_used, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			title = excluded.title,
			summary = excluded.summary,
			primary_goal = excluded.primary_goal,
			outcome = excluded.outcome,
			technologies_used = excluded.technologies_used,
			generated_at = excluded.generated_at`,
		ss.SessionID, ss.Title, ss.Summary, ss.PrimaryGoal, ss.Outcome, string(technologies), ss.GeneratedAt)
	if err != nil {
		return fmt.Errorf("chatvault: upsert session_summary: %w", err)
	}
	return nil
}

// TurnsForSession reconstructs the detected turns persisted for a session
// from their JSON payload, in turn order.
func (s *Store) TurnsForSession(ctx context.Context, sessionID string) ([]model.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM detected_turns WHERE session_id = ? ORDER BY turn_number ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("chatvault: list turns: %w", err)
	}
	defer rows.Close()

	var turns []model.Turn
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("chatvault: scan turn payload: %w", err)
		}
		var t model.Turn
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			return nil, fmt.Errorf("chatvault: unmarshal turn payload: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// SessionSummaryByID fetches a session's whole-session summary, or
// model.ErrNotFound when none has been generated yet.
func (s *Store) SessionSummaryByID(ctx context.Context, sessionID string) (*model.SessionSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, title, summary, primary_goal, outcome, technologies_used, generated_at
		FROM session_summaries WHERE session_id = ?`, sessionID)
	var ss model.SessionSummary
	var technologies string
	err := row.Scan(&ss.SessionID, &ss.Title, &ss.Summary, &ss.PrimaryGoal, &ss.Outcome, &technologies, &ss.GeneratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chatvault: scan session_summary: %w", err)
	}
	_ = json.Unmarshal([]byte(technologies), &ss.TechnologiesUsed)
	return &ss, nil
}

// ToolOperationsForSession returns a session's tool operations ordered by
// timestamp, for callers (e.g. the query facade's session detail view)
// that want the raw operation log rather than turn-aggregated counters.
func (s *Store) ToolOperationsForSession(ctx context.Context, sessionID string) ([]model.ToolOperation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, tool_use_id, tool_name, timestamp, file_metadata, success,
			result_summary, raw_input, raw_result, created_at
		FROM tool_operations WHERE session_id = ? ORDER BY timestamp ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("chatvault: list tool_operations: %w", err)
	}
	defer rows.Close()

	var ops []model.ToolOperation
	for rows.Next() {
		var op model.ToolOperation
		var fileMetadata sql.NullString
		var success sql.NullBool
		if err := rows.Scan(&op.ID, &op.SessionID, &op.ToolUseID, &op.ToolName, &op.Timestamp,
			&fileMetadata, &success, &op.ResultSummary, &op.RawInput, &op.RawResult, &op.CreatedAt); err != nil {
			return nil, fmt.Errorf("chatvault: scan tool_operation: %w", err)
		}
		if fileMetadata.Valid {
			var fm model.FileMetadata
			if err := json.Unmarshal([]byte(fileMetadata.String), &fm); err == nil {
				op.FileMetadata = &fm
			}
		}
		if success.Valid {
			v := success.Bool
			op.Success = &v
		}
		if decoded, derr := maybeDecompress(op.RawInput); derr == nil {
			op.RawInput = decoded
		}
		if decoded, derr := maybeDecompress(op.RawResult); derr == nil {
			op.RawResult = decoded
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}
