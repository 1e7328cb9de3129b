// Package model defines the canonical entities every source dialect is
// normalized into, along with the constructors that enforce their
// invariants.
package model

// Provider identifies the assistant application a session originated from.
type Provider string

const (
	ProviderClaudeCode  Provider = "claude-code"
	ProviderGeminiCLI   Provider = "gemini-cli"
	ProviderCodex       Provider = "codex"
	ProviderCursorAgent Provider = "cursor-agent"
	ProviderOther       Provider = "other"
)

// Valid reports whether p is one of the known provider tags.
func (p Provider) Valid() bool {
	switch p {
	case ProviderClaudeCode, ProviderGeminiCLI, ProviderCodex, ProviderCursorAgent, ProviderOther:
		return true
	default:
		return false
	}
}

func (p Provider) String() string { return string(p) }

// SessionState tracks a session's position in the import/enrichment
// pipeline.
type SessionState string

const (
	SessionDiscovered SessionState = "discovered"
	SessionImported   SessionState = "imported"
	SessionIndexed    SessionState = "indexed"
	SessionAnalyzed   SessionState = "analyzed"
	SessionFailed     SessionState = "failed"
)

// Role is the speaker of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MessageKind classifies a message for turn-aggregation purposes.
type MessageKind string

const (
	MessageSimple      MessageKind = "simple"
	MessageToolRequest MessageKind = "tool_request"
	MessageToolResult  MessageKind = "tool_result"
	MessageThinking    MessageKind = "thinking"
	MessageSlashCmd    MessageKind = "slash_command"
)

// TurnType is an optional classification a generated TurnSummary may carry.
type TurnType string

const (
	TurnTask          TurnType = "task"
	TurnQuestion      TurnType = "question"
	TurnErrorFix      TurnType = "error_fix"
	TurnClarification TurnType = "clarification"
	TurnDiscussion    TurnType = "discussion"
)
