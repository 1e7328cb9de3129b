package summarize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPromptTemplate_RenderSubstitutesAndDefaults(t *testing.T) {
	tpl := PromptTemplate{
		ID:       "t1",
		Template: "{greeting}, {name}!",
		Variables: []PromptVariable{
			{Name: "name", Required: true},
			{Name: "greeting", Required: false, DefaultValue: "Hello"},
		},
	}

	out, err := tpl.Render(map[string]string{"name": "World"})
	require.NoError(t, err)
	require.Equal(t, "Hello, World!", out)

	out, err = tpl.Render(map[string]string{"name": "World", "greeting": "Hi"})
	require.NoError(t, err)
	require.Equal(t, "Hi, World!", out)
}

func TestPromptTemplate_RenderErrorsOnMissingRequired(t *testing.T) {
	tpl := PromptTemplate{
		ID:       "t2",
		Template: "Content: {content}",
		Variables: []PromptVariable{{Name: "content", Required: true}},
	}
	_, err := tpl.Render(map[string]string{})
	require.Error(t, err)
}

func TestBuiltinTemplates_RenderCleanly(t *testing.T) {
	out, err := TurnSummaryPromptVersion1.Render(map[string]string{
		"user_content":      "fix the bug",
		"assistant_content": "fixed",
	})
	require.NoError(t, err)
	require.Contains(t, out, "fix the bug")
	require.Contains(t, out, "fixed")

	out, err = SessionSummaryPromptVersion1.Render(map[string]string{"turn_summaries": "Turn 0: did a thing"})
	require.NoError(t, err)
	require.Contains(t, out, "Turn 0: did a thing")
}
