// Package config groups the handful of settings that remain in scope once
// terminal-UI configuration is dropped: where the database lives, which
// provider directories to scan, and the sweep/generator budgets. Adapted
// from the teacher's Config/Default/Validate shape, replacing its
// UI/plugin/keymap fields with chatvault's own.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	DBPath             string
	ProviderDirs       map[string]string // provider name -> override directory, empty means use the registry default
	SweepConcurrency   int
	GeneratorTimeout   time.Duration
	GeneratorCLIPath   string
	GeneratorModel     string
	GeneratorMaxRetry  int
}

// Option mutates a Config under construction. Functional options, in the
// style of original_source's config builder, let cmd/chatvault layer flag
// and environment-variable overrides onto Default() without every caller
// needing to know the full field list.
type Option func(*Config)

// WithDBPath overrides the SQLite database path.
func WithDBPath(path string) Option {
	return func(c *Config) { c.DBPath = path }
}

// WithProviderDir overrides one provider's scan directory.
func WithProviderDir(provider, dir string) Option {
	return func(c *Config) {
		if c.ProviderDirs == nil {
			c.ProviderDirs = make(map[string]string)
		}
		c.ProviderDirs[provider] = dir
	}
}

// WithSweepConcurrency overrides the bulk-summarization fan-out width.
func WithSweepConcurrency(n int) Option {
	return func(c *Config) { c.SweepConcurrency = n }
}

// WithGeneratorTimeout overrides the per-call text-generation timeout.
func WithGeneratorTimeout(d time.Duration) Option {
	return func(c *Config) { c.GeneratorTimeout = d }
}

// WithGeneratorCLI overrides the subprocess text generator's binary path
// and model name.
func WithGeneratorCLI(path, model string) Option {
	return func(c *Config) {
		c.GeneratorCLIPath = path
		c.GeneratorModel = model
	}
}

// WithGeneratorMaxRetry sets GeneratorMaxRetry. The summarize orchestrator
// does not read this field; it retries with its own fixed budget.
func WithGeneratorMaxRetry(n int) Option {
	return func(c *Config) { c.GeneratorMaxRetry = n }
}

// Default returns the baseline configuration, before any Option is
// applied.
func Default() *Config {
	home, err := os.UserHomeDir()
	dbPath := "chatvault.db"
	if err == nil {
		dbPath = filepath.Join(home, ".chatvault", "chatvault.db")
	}
	return &Config{
		DBPath:            dbPath,
		ProviderDirs:      make(map[string]string),
		SweepConcurrency:  4,
		GeneratorTimeout:  5 * time.Minute,
		GeneratorCLIPath:  "claude",
		GeneratorModel:    "",
		GeneratorMaxRetry: 2,
	}
}

// New builds a Config from Default() plus the given options.
func New(opts ...Option) *Config {
	c := Default()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Validate checks the configuration for errors, repairing the fields that
// have a sane fallback rather than failing the whole process over them.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("config: db path must not be empty")
	}
	if c.SweepConcurrency <= 0 {
		c.SweepConcurrency = 4
	}
	if c.GeneratorTimeout <= 0 {
		c.GeneratorTimeout = 5 * time.Minute
	}
	if c.GeneratorMaxRetry < 0 {
		c.GeneratorMaxRetry = 0
	}
	return nil
}
