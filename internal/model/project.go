package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Project groups sessions that share a working directory or an inferred
// project name.
type Project struct {
	ID               string
	Name             string
	Description      string
	WorkingDirectory string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	SessionCount     int
	TotalTokens      int64
}

// NewProject constructs a Project, trimming name and rejecting an empty
// result. TotalTokens is deliberately never reconciled against the sum of
// its sessions' token counts: some sessions lack token counts entirely, so
// equality is not an invariant (see DESIGN.md's Open Question decisions).
func NewProject(name, description, workingDirectory string, now time.Time) (*Project, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, &InvariantError{Entity: "Project", Field: "name", Reason: "must be non-empty after trimming"}
	}
	return &Project{
		ID:               uuid.NewString(),
		Name:             trimmed,
		Description:      description,
		WorkingDirectory: workingDirectory,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Touch bumps a project's session/token counters on import of a new
// session. Counters are never allowed to go negative.
func (p *Project) Touch(tokens int64, now time.Time) {
	p.SessionCount++
	if tokens > 0 {
		p.TotalTokens += tokens
	}
	p.UpdatedAt = now
}
