// Package shared holds the content-flattening and fingerprinting helpers
// common to more than one dialect parser, generalized from the
// single-dialect version the claudecode adapter used to own.
package shared

import (
	"encoding/json"
	"strings"

	"github.com/wilbur182/chatvault/internal/model"
)

// ContentBlock is the array-shaped content part a source message carries:
// {type: "text"|"tool_use"|"tool_result"|"thinking", ...}.
type ContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
}

// FlattenResult is what Flatten produces from an array-shaped content
// field: the joined text with placeholders substituted in-place, plus the
// structured tool data pulled out to the side.
type FlattenResult struct {
	Content     string
	ToolUses    []model.ToolUse
	ToolResults []model.ToolResult
	Thinking    string
}

// Flatten joins a content-block array into the canonical message content
// string: each text block contributes its text; each tool_use block
// contributes "[Tool Use: <name>]" and a side-channel model.ToolUse; each
// tool_result block contributes "[Tool Result]" and a side-channel
// model.ToolResult.
func Flatten(blocks []ContentBlock) FlattenResult {
	var sb strings.Builder
	var thinking strings.Builder
	var out FlattenResult
	for i, b := range blocks {
		if i > 0 && sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		switch b.Type {
		case "text":
			sb.WriteString(b.Text)
		case "thinking":
			// Thinking blocks are carried on the message separately via
			// Thinking; they contribute no inline placeholder to content.
			if thinking.Len() > 0 {
				thinking.WriteByte('\n')
			}
			thinking.WriteString(b.Text)
		case "tool_use":
			name := model.NormalizeToolName(b.Name)
			sb.WriteString("[Tool Use: " + name + "]")
			var input map[string]any
			_ = json.Unmarshal(b.Input, &input)
			out.ToolUses = append(out.ToolUses, model.ToolUse{
				ID:       b.ID,
				Name:     name,
				Input:    input,
				RawInput: string(b.Input),
			})
		case "tool_result":
			sb.WriteString("[Tool Result]")
			out.ToolResults = append(out.ToolResults, model.ToolResult{
				ToolUseID: b.ToolUseID,
				Content:   rawContentString(b.Content),
				IsError:   b.IsError,
			})
		}
	}
	out.Content = sb.String()
	out.Thinking = thinking.String()
	return out
}

// rawContentString unwraps a tool_result's content field, which may be a
// plain JSON string or (rarely) a nested array of text parts.
func rawContentString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var sb strings.Builder
		for _, b := range blocks {
			if b.Type == "text" {
				sb.WriteString(b.Text)
			}
		}
		return sb.String()
	}
	return string(raw)
}

// PreviewMaxChars is the 200-character cap on turn previews.
const PreviewMaxChars = 200

// Preview truncates s to at most PreviewMaxChars runes, UTF-8-safe by
// construction since it counts runes rather than bytes, appending "..."
// when truncation occurred.
func Preview(s string) string {
	r := []rune(s)
	if len(r) <= PreviewMaxChars {
		return s
	}
	return string(r[:PreviewMaxChars]) + "..."
}
