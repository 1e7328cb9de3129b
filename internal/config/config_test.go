package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew_AppliesOptionsOverDefaults(t *testing.T) {
	c := New(
		WithDBPath("/tmp/custom.db"),
		WithProviderDir("claude-code", "/tmp/claude"),
		WithSweepConcurrency(8),
		WithGeneratorTimeout(30*time.Second),
		WithGeneratorCLI("gemini", "gemini-pro"),
		WithGeneratorMaxRetry(5),
	)

	require.Equal(t, "/tmp/custom.db", c.DBPath)
	require.Equal(t, "/tmp/claude", c.ProviderDirs["claude-code"])
	require.Equal(t, 8, c.SweepConcurrency)
	require.Equal(t, 30*time.Second, c.GeneratorTimeout)
	require.Equal(t, "gemini", c.GeneratorCLIPath)
	require.Equal(t, "gemini-pro", c.GeneratorModel)
	require.Equal(t, 5, c.GeneratorMaxRetry)
}

func TestValidate_RepairsNonPositiveFields(t *testing.T) {
	c := Default()
	c.SweepConcurrency = -1
	c.GeneratorTimeout = 0
	c.GeneratorMaxRetry = -3

	require.NoError(t, c.Validate())
	require.Equal(t, 4, c.SweepConcurrency)
	require.Equal(t, 5*time.Minute, c.GeneratorTimeout)
	require.Equal(t, 0, c.GeneratorMaxRetry)
}

func TestValidate_RejectsEmptyDBPath(t *testing.T) {
	c := Default()
	c.DBPath = ""
	require.Error(t, c.Validate())
}
