package turns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wilbur182/chatvault/internal/extractor"
	"github.com/wilbur182/chatvault/internal/model"
)

func mustMessage(t *testing.T, sessionID string, role model.Role, content string, seq int) model.Message {
	t.Helper()
	m, err := model.NewMessage("", sessionID, role, content, time.Now(), seq)
	require.NoError(t, err)
	return *m
}

// S4 — turn detection with mixed roles.
func TestDetect_SystemThenAlternatingUserAssistant(t *testing.T) {
	sessionID := "sess-1"
	messages := []model.Message{
		mustMessage(t, sessionID, model.RoleSystem, "system prompt", 0),
		mustMessage(t, sessionID, model.RoleUser, "first question", 1),
		mustMessage(t, sessionID, model.RoleAssistant, "first answer", 2),
		mustMessage(t, sessionID, model.RoleUser, "second question", 3),
		mustMessage(t, sessionID, model.RoleAssistant, "second answer", 4),
	}

	result := Detect(sessionID, messages, nil)
	require.Len(t, result, 3)

	require.Equal(t, 0, result[0].TurnNumber)
	require.Empty(t, result[0].FirstUserMsgID)
	require.Equal(t, 0, result[0].StartSequence)
	require.Equal(t, 0, result[0].EndSequence)

	require.Equal(t, 1, result[1].TurnNumber)
	require.NotEmpty(t, result[1].FirstUserMsgID)
	require.Equal(t, 1, result[1].StartSequence)
	require.Equal(t, 2, result[1].EndSequence)

	require.Equal(t, 2, result[2].TurnNumber)
	require.Equal(t, 3, result[2].StartSequence)
	require.Equal(t, 4, result[2].EndSequence)

	// Every message appears in exactly one turn: total message coverage
	// equals len(messages).
	total := 0
	for _, turn := range result {
		total += turn.TotalMessages
	}
	require.Equal(t, len(messages), total)
}

func TestDetect_OpensWithUser_NoTurnZero(t *testing.T) {
	sessionID := "sess-2"
	messages := []model.Message{
		mustMessage(t, sessionID, model.RoleUser, "hi", 0),
		mustMessage(t, sessionID, model.RoleAssistant, "hello", 1),
	}
	result := Detect(sessionID, messages, nil)
	require.Len(t, result, 1)
	require.Equal(t, 0, result[0].TurnNumber)
	require.NotEmpty(t, result[0].FirstUserMsgID)
}

func TestDetect_ToolOperationsAttributedToTurn(t *testing.T) {
	sessionID := "sess-3"
	m0 := mustMessage(t, sessionID, model.RoleUser, "read the file", 0)
	m1 := mustMessage(t, sessionID, model.RoleAssistant, "", 1)
	m1.ToolUses = []model.ToolUse{{ID: "t1", Name: "Read", Input: map[string]any{"file_path": "a.go"}}}
	m1.ToolResults = []model.ToolResult{{ToolUseID: "t1", Content: "package main\n"}}

	ops, _ := extractor.Extract(sessionID, []model.Message{m0, m1})
	result := Detect(sessionID, []model.Message{m0, m1}, ops)

	require.Len(t, result, 1)
	require.Equal(t, 1, result[0].ToolCallCount)
	require.Contains(t, result[0].FilesRead, "a.go")
	require.Equal(t, 1, result[0].UniqueFilesTouched())
}

// Thinking messages must count toward a turn's thinking kind-count, not
// be silently dropped as a plain/simple message.
func TestDetect_ThinkingMessageCounted(t *testing.T) {
	sessionID := "sess-4"
	m0 := mustMessage(t, sessionID, model.RoleUser, "why is this slow?", 0)
	m1 := mustMessage(t, sessionID, model.RoleAssistant, "", 1)
	m1.Thinking = "consider caching vs indexing"
	m2 := mustMessage(t, sessionID, model.RoleAssistant, "use an index", 2)

	result := Detect(sessionID, []model.Message{m0, m1, m2}, nil)
	require.Len(t, result, 1)
	require.Equal(t, 1, result[0].KindCounts[model.MessageThinking])
}
