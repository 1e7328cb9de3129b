package codex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, lines []string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "rollout.jsonl")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	for _, l := range lines {
		_, err := f.WriteString(l + "\n")
		require.NoError(t, err)
	}
	return path
}

func TestParse_SessionMetaAndEvents(t *testing.T) {
	header := `{"type":"session_meta","payload":{"id":"abc123","timestamp":"2025-01-01T00:00:00Z","cwd":"/home/dev/my-project"}}`
	userEvent := `{"type":"event_msg","payload":{"type":"user_message","message":"fix the bug"}}`
	agentEvent := `{"type":"event_msg","payload":{"type":"agent_message","message":"done"}}`
	unknownEvent := `{"type":"token_count","payload":{}}`
	blankEvent := `{"type":"event_msg","payload":{"type":"user_message","message":"   "}}`

	path := writeFixture(t, []string{header, userEvent, unknownEvent, blankEvent, agentEvent})

	a := New()
	result, err := a.Parse(path)
	require.NoError(t, err)
	require.Equal(t, "my-project", result.Session.ProjectName)
	require.Len(t, result.Messages, 2)
	require.Equal(t, "fix the bug", result.Messages[0].Content)
	require.Equal(t, "done", result.Messages[1].Content)

	// The raw session id ("abc123") is not a UUID; it must still parse and
	// be given a stable, valid-UUID session id rather than being rejected.
	require.NoError(t, uuid.Validate(result.Session.ID))
	require.Equal(t, normalizeID("abc123"), result.Session.ID)
}

func TestParse_MalformedHeader(t *testing.T) {
	path := writeFixture(t, []string{`{"type":"event_msg"}`})
	a := New()
	_, err := a.Parse(path)
	require.Error(t, err)
}

func TestParse_PerEventTimestamps(t *testing.T) {
	header := `{"type":"session_meta","payload":{"id":"abc123","timestamp":"2025-01-01T00:00:00Z"}}`
	first := `{"type":"event_msg","timestamp":"2025-01-01T00:05:00Z","payload":{"type":"user_message","message":"fix the bug"}}`
	second := `{"type":"event_msg","timestamp":"2025-01-01T00:10:00Z","payload":{"type":"agent_message","message":"done"}}`

	path := writeFixture(t, []string{header, first, second})

	a := New()
	result, err := a.Parse(path)
	require.NoError(t, err)
	require.Len(t, result.Messages, 2)
	require.Equal(t, "2025-01-01T00:05:00Z", result.Messages[0].Timestamp.UTC().Format("2006-01-02T15:04:05Z"))
	require.Equal(t, "2025-01-01T00:10:00Z", result.Messages[1].Timestamp.UTC().Format("2006-01-02T15:04:05Z"))
	require.True(t, result.Messages[1].Timestamp.After(result.Messages[0].Timestamp))
}
