package model

import (
	"encoding/json"
	"time"
	"unicode/utf8"
)

// resultSummaryMaxBytes is the 500-byte cap on ToolOperation.ResultSummary.
const resultSummaryMaxBytes = 500

// ToolOperation pairs one ToolUse with its ToolResult (or none), enriched
// with derived file-manipulation metrics.
type ToolOperation struct {
	ID            string
	SessionID     string
	ToolUseID     string
	ToolName      string
	Timestamp     time.Time
	FileMetadata  *FileMetadata
	Success       *bool // nil when unpaired
	ResultSummary string
	RawInput      string
	RawResult     string
	CreatedAt     time.Time
}

// TruncateUTF8Safe truncates s to at most maxBytes bytes without splitting
// a multi-byte rune, appending "..." when truncation actually occurred.
// The boundary search starts 3 bytes below maxBytes to leave room for the
// ellipsis, matching spec's "largest valid UTF-8 boundary <= max-3".
func TruncateUTF8Safe(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	limit := maxBytes - 3
	if limit < 0 {
		limit = 0
	}
	if limit > len(s) {
		limit = len(s)
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit] + "..."
}

// NewToolOperation builds the result summary (UTF-8-safe, <=500 bytes) and
// assembles a ToolOperation from a paired or unpaired tool use.
func NewToolOperation(id, sessionID string, use ToolUse, result *ToolResult, fm *FileMetadata, now time.Time) *ToolOperation {
	op := &ToolOperation{
		ID:           id,
		SessionID:    sessionID,
		ToolUseID:    use.ID,
		ToolName:     use.Name,
		Timestamp:    now,
		FileMetadata: fm,
		RawInput:     use.RawInput,
		CreatedAt:    now,
	}
	if result != nil {
		success := !result.IsError
		op.Success = &success
		op.RawResult = result.Content
		op.ResultSummary = TruncateUTF8Safe(result.Content, resultSummaryMaxBytes)
	}
	return op
}

// RawInputCommand extracts the "command" key from a Bash operation's raw
// input, used by the turn detector to list executed commands in order.
func (op *ToolOperation) RawInputCommand() (string, bool) {
	if op.RawInput == "" {
		return "", false
	}
	var fields struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal([]byte(op.RawInput), &fields); err != nil || fields.Command == "" {
		return "", false
	}
	return fields.Command, true
}
