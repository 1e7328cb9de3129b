package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wilbur182/chatvault/internal/model"
)

// upsertProject finds a project by name, creating it if absent, and bumps
// its session/token counters for the session being imported. It must run
// inside the same transaction as the session/message/tool-operation insert
// that triggered it, so a failure anywhere in the import rolls everything
// back together.
func upsertProject(ctx context.Context, tx *sql.Tx, name, workingDirectory string, tokens int64, now time.Time) (string, error) {
	if name == "" {
		return "", nil
	}

	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM projects WHERE name = ?`, name).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		p, perr := model.NewProject(name, "", workingDirectory, now)
		if perr != nil {
			return "", perr
		}
		p.Touch(tokens, now)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO projects(id, name, description, working_directory, created_at, updated_at, session_count, total_tokens)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Description, p.WorkingDirectory, p.CreatedAt, p.UpdatedAt, p.SessionCount, p.TotalTokens)
		if err != nil {
			return "", fmt.Errorf("chatvault: insert project: %w", err)
		}
		return p.ID, nil
	case err != nil:
		return "", fmt.Errorf("chatvault: lookup project: %w", err)
	default:
		tokenDelta := int64(0)
		if tokens > 0 {
			tokenDelta = tokens
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE projects SET session_count = session_count + 1, total_tokens = total_tokens + ?, updated_at = ?
			WHERE id = ?`, tokenDelta, now, id)
		if err != nil {
			return "", fmt.Errorf("chatvault: update project counters: %w", err)
		}
		return id, nil
	}
}
