package model

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Session is one uninterrupted conversation captured in a source file (or
// one element of a multi-conversation archive).
type Session struct {
	ID          string
	Provider    Provider
	ProjectName string // free text; may be empty
	FilePath    string // absolute path to the source file
	FileHash    string // content fingerprint; see parser/shared.Fingerprint
	StartTime   time.Time
	EndTime     *time.Time
	MessageCount int
	TokenCount  *int64
	State       SessionState
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewSession constructs a Session, enforcing an absolute, non-empty file
// path and a recognized provider tag.
func NewSession(id string, provider Provider, filePath, fileHash string, start time.Time, now time.Time) (*Session, error) {
	if !provider.Valid() {
		return nil, &InvariantError{Entity: "Session", Field: "provider", Reason: "unrecognized provider tag"}
	}
	if filePath == "" {
		return nil, &InvariantError{Entity: "Session", Field: "file_path", Reason: "must not be empty"}
	}
	if !filepath.IsAbs(filePath) {
		return nil, &InvariantError{Entity: "Session", Field: "file_path", Reason: "must be absolute"}
	}
	if fileHash == "" {
		return nil, &InvariantError{Entity: "Session", Field: "file_hash", Reason: "must not be empty"}
	}
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return nil, &InvariantError{Entity: "Session", Field: "id", Reason: "must be a valid UUID"}
	}
	return &Session{
		ID:        id,
		Provider:  provider,
		FilePath:  filePath,
		FileHash:  fileHash,
		StartTime: start,
		State:     SessionDiscovered,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NaturalKey is (provider, file_hash) — the deduplication key for
// re-imports, per spec's invariant that re-importing the same file must
// not create a duplicate session.
type NaturalKey struct {
	Provider Provider
	FileHash string
}

func (s *Session) NaturalKey() NaturalKey {
	return NaturalKey{Provider: s.Provider, FileHash: s.FileHash}
}

// SetMessageCount sets message_count, rejecting a negative n. It does not
// compare n against the number of stored messages.
func (s *Session) SetMessageCount(n int) error {
	if n < 0 {
		return &InvariantError{Entity: "Session", Field: "message_count", Reason: "must be non-negative"}
	}
	s.MessageCount = n
	return nil
}
