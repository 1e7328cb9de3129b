// Package extractor implements the tool-operation extractor (C4): pairing
// each ToolUse with its ToolResult (same message or one-message lookahead),
// deriving file-manipulation metrics, and flagging orphaned results.
// Generalized from the teacher's claudecode adapter's linkToolResults,
// which did the same-message/lookahead pairing for one dialect only.
package extractor

import (
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wilbur182/chatvault/internal/model"
)

// bulkEditThreshold and refactorThreshold classify a file operation as a
// bulk edit or a pure refactor; these thresholds are this implementation's
// own contract (spec leaves the exact values unspecified).
const (
	bulkEditThreshold = 100
	refactorThreshold = 20
)

// Operation pairs a synthesized ToolOperation with the sequence number of
// the message that carried its originating ToolUse, so downstream turn
// detection can attribute operations to the turn that contains them.
type Operation struct {
	model.ToolOperation
	SequenceNumber int
}

// Extract walks a session's chronologically ordered messages and produces
// its ToolOperation list, plus any ToolResults that could not be matched
// to a ToolUse (retained as diagnostics, not operations).
func Extract(sessionID string, messages []model.Message) (operations []Operation, orphaned []model.ToolResult) {
	consumed := make([]map[int]bool, len(messages))
	for i := range consumed {
		consumed[i] = make(map[int]bool)
	}
	idSource := ulid.Monotonic(rand.New(rand.NewSource(1)), 0)

	for i, msg := range messages {
		for _, use := range msg.ToolUses {
			if result, idx, ok := findResult(msg.ToolResults, use.ID, consumed[i]); ok {
				consumed[i][idx] = true
				op := buildOperation(sessionID, use, &result, msg.Timestamp, idSource)
				operations = append(operations, Operation{ToolOperation: op, SequenceNumber: msg.SequenceNumber})
				continue
			}
			if i+1 < len(messages) {
				next := messages[i+1]
				if result, idx, ok := findResult(next.ToolResults, use.ID, consumed[i+1]); ok {
					consumed[i+1][idx] = true
					op := buildOperation(sessionID, use, &result, msg.Timestamp, idSource)
					operations = append(operations, Operation{ToolOperation: op, SequenceNumber: msg.SequenceNumber})
					continue
				}
			}
			op := buildOperation(sessionID, use, nil, msg.Timestamp, idSource)
			operations = append(operations, Operation{ToolOperation: op, SequenceNumber: msg.SequenceNumber})
		}
	}

	for i, msg := range messages {
		for idx, result := range msg.ToolResults {
			if !consumed[i][idx] {
				orphaned = append(orphaned, result)
			}
		}
	}
	return operations, orphaned
}

func findResult(results []model.ToolResult, toolUseID string, taken map[int]bool) (model.ToolResult, int, bool) {
	for idx, r := range results {
		if taken[idx] {
			continue
		}
		if r.ToolUseID == toolUseID {
			return r, idx, true
		}
	}
	return model.ToolResult{}, -1, false
}

func buildOperation(sessionID string, use model.ToolUse, result *model.ToolResult, ts time.Time, idSource *ulid.MonotonicEntropy) model.ToolOperation {
	idTime := ts
	if idTime.IsZero() {
		idTime = time.Unix(0, 0).UTC()
	}
	id := ulid.MustNew(ulid.Timestamp(idTime), idSource).String()
	fm := deriveFileMetadata(use, result)
	op := model.NewToolOperation(id, sessionID, use, result, fm, ts)
	return *op
}

// deriveFileMetadata pulls the file_path out of a tool's canonical input
// keys (file_path for Read/Write/Edit) and derives before/after line
// counts from whatever pre/post content the tool call and its result
// embed. Tools that carry no file_path produce no FileMetadata.
func deriveFileMetadata(use model.ToolUse, result *model.ToolResult) *model.FileMetadata {
	filePath, _ := use.Input["file_path"].(string)
	if filePath == "" {
		return nil
	}

	var before, after *int
	var contentSize int

	switch use.Name {
	case "Write":
		if content, ok := use.Input["content"].(string); ok {
			n := model.CountLines(content)
			after = &n
			contentSize = len(content)
		}
	case "Edit":
		oldStr, _ := use.Input["old_string"].(string)
		newStr, _ := use.Input["new_string"].(string)
		if oldStr != "" || newStr != "" {
			b := model.CountLines(oldStr)
			a := model.CountLines(newStr)
			before, after = &b, &a
			contentSize = len(newStr)
		}
	case "Read":
		if result != nil {
			n := model.CountLines(result.Content)
			after = &n
			contentSize = len(result.Content)
		}
	}

	fm := model.NewFileMetadata(filePath, before, after, contentSize)
	fm.IsBulkEdit = fm.TotalLineChanges() > bulkEditThreshold
	fm.IsRefactoring = fm.NetLineChange() == 0 && fm.TotalLineChanges() > refactorThreshold
	return &fm
}
