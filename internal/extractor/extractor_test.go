package extractor

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/wilbur182/chatvault/internal/model"
)

func mustMessage(t *testing.T, sessionID string, role model.Role, content string, seq int) model.Message {
	t.Helper()
	m, err := model.NewMessage("", sessionID, role, content, time.Now(), seq)
	require.NoError(t, err)
	return *m
}

// S3 — tool pair across adjacent messages.
func TestExtract_LookaheadPairing(t *testing.T) {
	sessionID := "sess-1"
	m1 := mustMessage(t, sessionID, model.RoleUser, "Run ls", 0)
	m2 := mustMessage(t, sessionID, model.RoleAssistant, "Running", 1)
	m2.ToolUses = []model.ToolUse{{ID: "tool_1", Name: "Bash"}}
	m3 := mustMessage(t, sessionID, model.RoleAssistant, "", 2)
	m3.ToolResults = []model.ToolResult{{ToolUseID: "tool_1", Content: "file1.txt", IsError: false}}
	m4 := mustMessage(t, sessionID, model.RoleAssistant, "Here are the files", 3)

	ops, orphaned := Extract(sessionID, []model.Message{m1, m2, m3, m4})

	require.Len(t, ops, 1)
	require.Empty(t, orphaned)
	require.Equal(t, "tool_1", ops[0].ToolUseID)
	require.NotNil(t, ops[0].Success)
	require.True(t, *ops[0].Success)
	require.Equal(t, "file1.txt", ops[0].ResultSummary)
}

func TestExtract_SameMessagePairing(t *testing.T) {
	sessionID := "sess-2"
	m1 := mustMessage(t, sessionID, model.RoleAssistant, "", 0)
	m1.ToolUses = []model.ToolUse{{ID: "tool_a", Name: "Read"}}
	m1.ToolResults = []model.ToolResult{{ToolUseID: "tool_a", Content: "contents", IsError: false}}

	ops, orphaned := Extract(sessionID, []model.Message{m1})
	require.Len(t, ops, 1)
	require.Empty(t, orphaned)
}

func TestExtract_UnpairedToolUseWhenNextMessageUnrelated(t *testing.T) {
	sessionID := "sess-3"
	m1 := mustMessage(t, sessionID, model.RoleAssistant, "", 0)
	m1.ToolUses = []model.ToolUse{{ID: "tool_b", Name: "Bash"}}
	m2 := mustMessage(t, sessionID, model.RoleAssistant, "unrelated", 1)

	ops, _ := Extract(sessionID, []model.Message{m1, m2})
	require.Len(t, ops, 1)
	require.Nil(t, ops[0].Success)
}

func TestExtract_OrphanedResultTwoMessagesLater(t *testing.T) {
	sessionID := "sess-4"
	m1 := mustMessage(t, sessionID, model.RoleAssistant, "", 0)
	m1.ToolUses = []model.ToolUse{{ID: "tool_c", Name: "Bash"}}
	m2 := mustMessage(t, sessionID, model.RoleAssistant, "filler", 1)
	m3 := mustMessage(t, sessionID, model.RoleAssistant, "", 2)
	m3.ToolResults = []model.ToolResult{{ToolUseID: "tool_c", Content: "too late", IsError: false}}

	ops, orphaned := Extract(sessionID, []model.Message{m1, m2, m3})
	require.Len(t, ops, 1)
	require.Nil(t, ops[0].Success) // m1's tool_c never matched m2
	require.Len(t, orphaned, 1)    // m3's result never matched anything
}

// S6 — UTF-8-safe summary truncation.
func TestExtract_UTF8SafeTruncation(t *testing.T) {
	sessionID := "sess-5"
	content := strings.Repeat("안녕하세요", 150)
	m1 := mustMessage(t, sessionID, model.RoleAssistant, "", 0)
	m1.ToolUses = []model.ToolUse{{ID: "tool_d", Name: "Bash"}}
	m1.ToolResults = []model.ToolResult{{ToolUseID: "tool_d", Content: content, IsError: false}}

	ops, _ := Extract(sessionID, []model.Message{m1})
	require.Len(t, ops, 1)
	summary := ops[0].ResultSummary
	require.LessOrEqual(t, len(summary), 500)
	require.True(t, utf8.ValidString(summary))
	require.True(t, strings.HasSuffix(summary, "..."))
}
