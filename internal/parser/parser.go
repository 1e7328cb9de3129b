// Package parser defines the contract every source-dialect parser (C1)
// implements, and the SessionMessages pair that contract produces.
package parser

import "github.com/wilbur182/chatvault/internal/model"

// SessionMessages pairs a decoded session with its chronologically
// ordered messages.
type SessionMessages struct {
	Session  *model.Session
	Messages []model.Message
}

// OnPair is the callback a streaming parse drives, once per decoded
// message, without retaining the full message list in memory.
type OnPair func(session *model.Session, message model.Message) error

// Parser is the contract every dialect variant implements: a cheap sniff
// and a single-session decode. The two bulk-import paths (multi-session
// archives and streaming for large single-session files) are the optional
// MultiParser and StreamingParser interfaces below.
type Parser interface {
	// Validate is a cheap sniff (no full decode) reporting whether path
	// plausibly belongs to this dialect.
	Validate(path string) (bool, error)

	// Parse fully decodes a single-session file.
	Parse(path string) (SessionMessages, error)
}

// MultiParser is implemented by dialects whose files hold more than one
// conversation (D3).
type MultiParser interface {
	Parser
	ParseMany(path string) ([]SessionMessages, error)
}

// StreamingParser is implemented by dialects that can decode without
// retaining the full message list, for bulk imports of large files.
type StreamingParser interface {
	Parser
	ParseStreaming(path string, onPair OnPair) error
}
