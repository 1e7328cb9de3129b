package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wilbur182/chatvault/internal/model"
	"github.com/wilbur182/chatvault/internal/parser"
	"github.com/wilbur182/chatvault/internal/parser/claudecode"
	"github.com/wilbur182/chatvault/internal/parser/geminicli"
)

func TestDetect_ByPatternAndSniff(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "transcript.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"550e8400-e29b-41d4-a716-446655440000"}`+"\n"), 0o644))

	reg := New(map[model.Provider]parser.Parser{
		model.ProviderClaudeCode: claudecode.New(),
		model.ProviderGeminiCLI:  geminicli.New(),
	})

	provider, ok, err := reg.Detect(path)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, model.ProviderClaudeCode, provider)
}

func TestScanDirectory_SkipsUnmatchedFiles(t *testing.T) {
	dir := t.TempDir()
	jsonlPath := filepath.Join(dir, "a.jsonl")
	require.NoError(t, os.WriteFile(jsonlPath, []byte(`{"id":"550e8400-e29b-41d4-a716-446655440000"}`+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))

	reg := New(map[model.Provider]parser.Parser{
		model.ProviderClaudeCode: claudecode.New(),
	})

	results, err := reg.ScanDirectory(dir, true, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, jsonlPath, results[0].Path)
}

func TestInferProjectName_WellKnownSegmentFallback(t *testing.T) {
	name := InferProjectName("-Users-dev-workspace-my-app")
	require.Equal(t, "my-app", name)
}
