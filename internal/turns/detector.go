// Package turns implements the turn detector (C6): segmenting a session's
// chronologically ordered messages into turns and computing the aggregate
// counters spec.md §4.6 requires for each one.
package turns

import (
	"github.com/wilbur182/chatvault/internal/extractor"
	"github.com/wilbur182/chatvault/internal/model"
	"github.com/wilbur182/chatvault/internal/parser/shared"
)

// Detect segments messages into a dense sequence of Turn records. ops is
// the session's extracted tool operations, used to populate
// files_read/written/modified and command-execution counters.
func Detect(sessionID string, messages []model.Message, ops []extractor.Operation) []model.Turn {
	if len(messages) == 0 {
		return nil
	}

	opsBySeq := make(map[int][]extractor.Operation)
	for _, op := range ops {
		opsBySeq[op.SequenceNumber] = append(opsBySeq[op.SequenceNumber], op)
	}

	var turns []model.Turn
	turnNumber := 0
	i := 0

	if messages[0].Role != model.RoleUser {
		end := 0
		for end < len(messages) && messages[end].Role != model.RoleUser {
			end++
		}
		t := buildTurn(sessionID, turnNumber, messages[0:end], "", opsBySeq)
		turns = append(turns, t)
		turnNumber++
		i = end
	}

	for i < len(messages) {
		start := i
		i++
		for i < len(messages) && messages[i].Role != model.RoleUser {
			i++
		}
		segment := messages[start:i]
		t := buildTurn(sessionID, turnNumber, segment, segment[0].ID, opsBySeq)
		turns = append(turns, t)
		turnNumber++
	}

	return turns
}

func buildTurn(sessionID string, turnNumber int, segment []model.Message, firstUserMsgID string, opsBySeq map[int][]extractor.Operation) model.Turn {
	t := model.NewTurn(sessionID, turnNumber, segment[0].SequenceNumber)
	t.EndSequence = segment[len(segment)-1].SequenceNumber
	t.FirstUserMsgID = firstUserMsgID
	t.StartTime = segment[0].Timestamp
	t.EndTime = segment[len(segment)-1].Timestamp

	var firstUserSeen, firstAssistantSeen bool

	for _, msg := range segment {
		t.TotalMessages++
		switch msg.Role {
		case model.RoleUser:
			t.UserMessages++
			if !firstUserSeen {
				t.FirstUserPreview = shared.Preview(msg.Content)
				firstUserSeen = true
			}
		case model.RoleAssistant:
			t.AssistantMessages++
			if firstUserSeen && !firstAssistantSeen {
				t.FirstAssistantPreview = shared.Preview(msg.Content)
				firstAssistantSeen = true
			}
		case model.RoleSystem:
			t.SystemMessages++
		}
		t.KindCounts[msg.Kind()]++

		if msg.TokenCount != nil {
			t.TotalTokens += *msg.TokenCount
			switch msg.Role {
			case model.RoleUser:
				t.UserTokens += *msg.TokenCount
			case model.RoleAssistant:
				t.AssistantTokens += *msg.TokenCount
			}
		}

		for _, op := range opsBySeq[msg.SequenceNumber] {
			t.ToolCallCount++
			t.ToolUsage[op.ToolName]++
			if op.Success != nil {
				if *op.Success {
					t.ToolSuccess++
				} else {
					t.ToolError++
				}
			}
			if op.FileMetadata != nil {
				switch op.ToolName {
				case "Read":
					t.FilesRead = append(t.FilesRead, op.FileMetadata.FilePath)
				case "Write":
					t.FilesWritten = append(t.FilesWritten, op.FileMetadata.FilePath)
				case "Edit":
					t.FilesModified = append(t.FilesModified, op.FileMetadata.FilePath)
				}
				t.LinesAdded += op.FileMetadata.LinesAdded
				t.LinesRemoved += op.FileMetadata.LinesRemoved
			}
			if op.ToolName == "Bash" {
				t.BashCommandCount++
				if cmd, ok := op.RawInputCommand(); ok {
					t.CommandsExecuted = append(t.CommandsExecuted, cmd)
				}
				if op.Success != nil {
					if *op.Success {
						t.BashSuccess++
					} else {
						t.BashError++
					}
				}
			}
		}
	}

	return *t
}
