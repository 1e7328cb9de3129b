package geminicli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestParse_FlatArrayWithTokens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session-2025-01-01T00-00-00Z-my-tag.json")
	content := `[
		{"role":"user","content":"hello","timestamp":"2025-01-01T00:00:00Z"},
		{"role":"model","content":"hi there","timestamp":"2025-01-01T00:00:01Z","tokens":{"input":10,"output":5,"total":15}}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	a := New()
	result, err := a.Parse(path)
	require.NoError(t, err)
	require.Len(t, result.Messages, 2)
	require.Equal(t, "my-tag", result.Session.ProjectName)
	require.NotNil(t, result.Session.TokenCount)
	require.EqualValues(t, 15, *result.Session.TokenCount)
	require.NotNil(t, result.Messages[1].TokenCount)
	require.EqualValues(t, 15, *result.Messages[1].TokenCount)

	// The filename-derived session id ("session-2025-01-01T00-00-00Z-my-tag")
	// is not a UUID; it must still parse and yield a stable, valid UUID id.
	require.NoError(t, uuid.Validate(result.Session.ID))
	require.Equal(t, normalizeID("session-2025-01-01T00-00-00Z-my-tag"), result.Session.ID)
}

func TestValidate_RequiresFilenamePattern(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unrelated.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))

	a := New()
	ok, err := a.Validate(path)
	require.NoError(t, err)
	require.False(t, ok)
}
