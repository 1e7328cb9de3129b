package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wilbur182/chatvault/internal/model"
)

// SessionFilter narrows ListSessions/SearchMessages by provider and/or
// project name; zero-value fields are unfiltered.
type SessionFilter struct {
	Provider model.Provider
	Project  string
}

// SessionPage is one page of session rows plus the total row count, so
// callers can compute total_pages without a second round trip.
type SessionPage struct {
	Sessions   []model.Session
	TotalCount int
}

// ListSessions returns one page of sessions ordered by sortBy/sortOrder.
// sortBy is restricted to a known column allow-list to avoid building SQL
// from unchecked input; an unrecognized value falls back to start_time.
func (s *Store) ListSessions(ctx context.Context, filter SessionFilter, sortBy, sortOrder string, limit, offset int) (*SessionPage, error) {
	column, ok := sessionSortColumns[sortBy]
	if !ok {
		column = "start_time"
	}
	order := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		order = "ASC"
	}

	where, args := filter.clause()

	var total int
	countQuery := "SELECT COUNT(*) FROM chat_sessions" + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("chatvault: count sessions: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, provider, project_name, file_path, file_hash, start_time, end_time,
			message_count, token_count, state, created_at, updated_at
		FROM chat_sessions%s
		ORDER BY %s %s, id ASC
		LIMIT ? OFFSET ?`, where, column, order)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("chatvault: list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatvault: list sessions: %w", err)
	}
	return &SessionPage{Sessions: sessions, TotalCount: total}, nil
}

var sessionSortColumns = map[string]string{
	"start_time":    "start_time",
	"end_time":      "end_time",
	"message_count": "message_count",
	"token_count":   "token_count",
	"created_at":    "created_at",
}

func (f SessionFilter) clause() (string, []any) {
	var conds []string
	var args []any
	if f.Provider != "" {
		conds = append(conds, "provider = ?")
		args = append(args, string(f.Provider))
	}
	if f.Project != "" {
		conds = append(conds, "project_name = ?")
		args = append(args, f.Project)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (model.Session, error) {
	var sess model.Session
	var provider string
	var endTime sql.NullTime
	var tokenCount sql.NullInt64
	var state string
	if err := row.Scan(&sess.ID, &provider, &sess.ProjectName, &sess.FilePath, &sess.FileHash,
		&sess.StartTime, &endTime, &sess.MessageCount, &tokenCount, &state, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		return model.Session{}, fmt.Errorf("chatvault: scan session: %w", err)
	}
	sess.Provider = model.Provider(provider)
	sess.State = model.SessionState(state)
	if endTime.Valid {
		t := endTime.Time
		sess.EndTime = &t
	}
	if tokenCount.Valid {
		v := tokenCount.Int64
		sess.TokenCount = &v
	}
	return sess, nil
}

// SessionByID fetches one session row, or model.ErrNotFound.
func (s *Store) SessionByID(ctx context.Context, id string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, provider, project_name, file_path, file_hash, start_time, end_time,
			message_count, token_count, state, created_at, updated_at
		FROM chat_sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

// MessagesForSession returns a session's messages in sequence order,
// optionally windowed by limit/offset (limit<=0 means unbounded).
func (s *Store) MessagesForSession(ctx context.Context, sessionID string, limit, offset int) ([]model.Message, error) {
	query := `
		SELECT id, session_id, role, content, timestamp, sequence_number, token_count, tool_operation_id
		FROM messages WHERE session_id = ? ORDER BY sequence_number ASC`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("chatvault: list messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var m model.Message
		var role string
		var tokenCount sql.NullInt64
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &m.Timestamp, &m.SequenceNumber, &tokenCount, &m.ToolOperationID); err != nil {
			return nil, fmt.Errorf("chatvault: scan message: %w", err)
		}
		m.Role = model.Role(role)
		if tokenCount.Valid {
			v := tokenCount.Int64
			m.TokenCount = &v
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// SearchResult is one matched message plus enough session context to
// render a result row without a second lookup.
type SearchResult struct {
	Message   model.Message
	Session   model.Session
	Relevance float64
}

// SearchFilter narrows SearchMessages by provider, project, and time
// range; zero-value fields (including a zero time.Time) are unfiltered.
type SearchFilter struct {
	Providers []model.Provider
	Projects  []string
	Since     time.Time
	Until     time.Time
}

// SearchMessages runs a full-text search over message content via the
// messages_fts virtual table, scoring relevance from SQLite's bm25 rank
// (lower is better; normalized here to a [0,1] score where 1 is the best
// match in the result set) and breaking ties by recency, then message id,
// for a stable total ordering across identical queries.
func (s *Store) SearchMessages(ctx context.Context, query string, filter SearchFilter, limit, offset int) ([]SearchResult, int, error) {
	var conds []string
	// Each whitespace-separated term is quoted as an FTS5 string, so
	// punctuation such as the "." in "main.go" is tokenized instead of
	// being parsed as query syntax; the quoted terms are ANDed.
	terms := strings.Fields(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	args := []any{strings.Join(terms, " ")}
	if len(filter.Providers) > 0 {
		placeholders := make([]string, len(filter.Providers))
		for i, p := range filter.Providers {
			placeholders[i] = "?"
			args = append(args, string(p))
		}
		conds = append(conds, "cs.provider IN ("+strings.Join(placeholders, ",")+")")
	}
	if len(filter.Projects) > 0 {
		placeholders := make([]string, len(filter.Projects))
		for i, p := range filter.Projects {
			placeholders[i] = "?"
			args = append(args, p)
		}
		conds = append(conds, "cs.project_name IN ("+strings.Join(placeholders, ",")+")")
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "m.timestamp >= ?")
		args = append(args, filter.Since)
	}
	if !filter.Until.IsZero() {
		conds = append(conds, "m.timestamp <= ?")
		args = append(args, filter.Until)
	}
	where := ""
	if len(conds) > 0 {
		where = " AND " + strings.Join(conds, " AND ")
	}

	countQuery := `
		SELECT COUNT(*)
		FROM messages_fts f
		JOIN messages m ON m.rowid = f.rowid
		JOIN chat_sessions cs ON cs.id = m.session_id
		WHERE messages_fts MATCH ?` + where
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("chatvault: count search matches: %w", err)
	}

	dataQuery := `
		SELECT m.id, m.session_id, m.role, m.content, m.timestamp, m.sequence_number, m.token_count, m.tool_operation_id,
			cs.id, cs.provider, cs.project_name, cs.file_path, cs.file_hash, cs.start_time, cs.end_time,
			cs.message_count, cs.token_count, cs.state, cs.created_at, cs.updated_at,
			bm25(messages_fts) AS rank
		FROM messages_fts f
		JOIN messages m ON m.rowid = f.rowid
		JOIN chat_sessions cs ON cs.id = m.session_id
		WHERE messages_fts MATCH ?` + where + `
		ORDER BY rank ASC, m.timestamp DESC, m.id ASC
		LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, dataQuery, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("chatvault: search messages: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	minRank, maxRank := 0.0, 0.0
	first := true
	type raw struct {
		res  SearchResult
		rank float64
	}
	var rawResults []raw
	for rows.Next() {
		var m model.Message
		var role string
		var msgTokenCount sql.NullInt64
		var provider, state string
		var sess model.Session
		var sessEndTime sql.NullTime
		var sessTokenCount sql.NullInt64
		var rank float64
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &m.Timestamp, &m.SequenceNumber, &msgTokenCount, &m.ToolOperationID,
			&sess.ID, &provider, &sess.ProjectName, &sess.FilePath, &sess.FileHash, &sess.StartTime, &sessEndTime,
			&sess.MessageCount, &sessTokenCount, &state, &sess.CreatedAt, &sess.UpdatedAt, &rank); err != nil {
			return nil, 0, fmt.Errorf("chatvault: scan search result: %w", err)
		}
		m.Role = model.Role(role)
		if msgTokenCount.Valid {
			v := msgTokenCount.Int64
			m.TokenCount = &v
		}
		sess.Provider = model.Provider(provider)
		sess.State = model.SessionState(state)
		if sessEndTime.Valid {
			t := sessEndTime.Time
			sess.EndTime = &t
		}
		if sessTokenCount.Valid {
			v := sessTokenCount.Int64
			sess.TokenCount = &v
		}
		if first || rank < minRank {
			minRank = rank
		}
		if first || rank > maxRank {
			maxRank = rank
		}
		first = false
		rawResults = append(rawResults, raw{res: SearchResult{Message: m, Session: sess}, rank: rank})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("chatvault: search messages: %w", err)
	}

	// bm25 scores run more-negative-is-better; rescale the page's spread to
	// [0,1] with the best match (minRank) mapping to 1.
	spread := maxRank - minRank
	for _, r := range rawResults {
		score := 1.0
		if spread != 0 {
			score = (maxRank - r.rank) / spread
		}
		res := r.res
		res.Relevance = score
		results = append(results, res)
	}
	return results, total, nil
}
