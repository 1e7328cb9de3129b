package model

import (
	"time"

	"github.com/google/uuid"
)

// ToolUse is a structured request to invoke an external capability,
// inlined in a message's content by the source application.
type ToolUse struct {
	ID       string // provider-scoped; unique within its session
	Name     string // normalized; see NormalizeToolName
	Input    map[string]any
	RawInput string // opaque original encoding, kept for ToolOperation.raw_input
}

// ToolResult references the ToolUse it answers. Details is populated when
// the enclosing message carries stdout/stderr/interrupted enrichment
// (the D1 "conversation" shape's sibling toolUseResult).
type ToolResult struct {
	ToolUseID string
	Content   string
	IsError   bool
	Details   *ToolResultDetails
}

type ToolResultDetails struct {
	Stdout      string
	Stderr      string
	Interrupted bool
}

// Message is one event within a session's chronological stream.
type Message struct {
	ID              string
	SessionID       string
	Role            Role
	Content         string // post-normalization: text parts joined, placeholders substituted
	Timestamp       time.Time
	SequenceNumber  int
	TokenCount      *int64
	ToolUses        []ToolUse
	ToolResults     []ToolResult
	Thinking        string // extended-reasoning text, carried separately from Content
	ToolOperationID string // stored reference to a synthesized ToolOperation; the extractor does not set it
}

// NewMessage constructs a Message, assigning a UUID when id is empty and
// enforcing the role/session invariants. Sequence-number uniqueness is a
// per-session invariant enforced by the caller assembling a session's
// message list, not by the constructor.
func NewMessage(id, sessionID string, role Role, content string, ts time.Time, seq int) (*Message, error) {
	if sessionID == "" {
		return nil, &InvariantError{Entity: "Message", Field: "session_id", Reason: "must not be empty"}
	}
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return nil, &InvariantError{Entity: "Message", Field: "role", Reason: "must be user, assistant, or system"}
	}
	if seq < 0 {
		return nil, &InvariantError{Entity: "Message", Field: "sequence_number", Reason: "must be non-negative"}
	}
	if id == "" {
		id = uuid.NewString()
	}
	return &Message{
		ID:             id,
		SessionID:      sessionID,
		Role:           role,
		Content:        content,
		Timestamp:      ts,
		SequenceNumber: seq,
	}, nil
}

// Kind classifies the message for turn-level aggregation.
func (m *Message) Kind() MessageKind {
	switch {
	case len(m.ToolResults) > 0 && len(m.ToolUses) == 0:
		return MessageToolResult
	case len(m.ToolUses) > 0:
		return MessageToolRequest
	case m.Thinking != "":
		return MessageThinking
	case len(m.Content) > 0 && m.Content[0] == '/':
		return MessageSlashCmd
	default:
		return MessageSimple
	}
}

// toolNameTable is the normalization map applied before emitting a ToolUse,
// per the cross-dialect tool-name normalization rule.
var toolNameTable = map[string]string{
	"replace":          "Edit",
	"run_shell_command": "Bash",
	"read_file":        "Read",
	"write_file":       "Write",
	"write_to_file":    "Write",
}

// NormalizeToolName applies the cross-dialect tool-name normalization
// table; names absent from the table are capitalized on their first letter
// and otherwise kept verbatim.
func NormalizeToolName(raw string) string {
	if mapped, ok := toolNameTable[raw]; ok {
		return mapped
	}
	if raw == "" {
		return raw
	}
	r := []rune(raw)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] = r[0] - ('a' - 'A')
	}
	return string(r)
}
