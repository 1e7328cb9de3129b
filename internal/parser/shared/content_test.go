package shared

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlatten_ThinkingBlockSeparatedFromContent(t *testing.T) {
	blocks := []ContentBlock{
		{Type: "thinking", Text: "consider the edge cases first"},
		{Type: "text", Text: "Here's the fix."},
	}
	out := Flatten(blocks)
	require.Equal(t, "consider the edge cases first", out.Thinking)
	require.Contains(t, out.Content, "Here's the fix.")
	require.NotContains(t, out.Content, "consider the edge cases")
}

func TestFlatten_ToolUseAndResult(t *testing.T) {
	input, err := json.Marshal(map[string]any{"command": "ls"})
	require.NoError(t, err)
	blocks := []ContentBlock{
		{Type: "tool_use", ID: "t1", Name: "run_shell_command", Input: input},
	}
	out := Flatten(blocks)
	require.Contains(t, out.Content, "[Tool Use: Bash]")
	require.Len(t, out.ToolUses, 1)
	require.Equal(t, "Bash", out.ToolUses[0].Name)
}
