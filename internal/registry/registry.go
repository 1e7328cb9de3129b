// Package registry implements the dispatcher (C2): dialect detection by
// filename pattern plus content sniffing, directory scanning with a
// provider filter, and provider discovery over configured default
// directories. Generalized from the teacher's flat adapter-factory
// registration (internal/adapter/detect.go) into a per-dialect
// glob+sniff rule table, supplemented by original_source's provider
// registry (default directory / env-var override / glob patterns).
package registry

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wilbur182/chatvault/internal/model"
	"github.com/wilbur182/chatvault/internal/parser"
)

// ProviderConfig carries a provider's on-disk convention as data, per
// SPEC_FULL.md's supplemented "provider registry" feature: the default
// directory, its override environment variable, and the filename glob
// patterns that identify candidate files.
type ProviderConfig struct {
	Provider     model.Provider
	DefaultDir   string // may contain a leading "~"
	EnvVar       string
	FilePatterns []string
}

// Registry is the dispatcher: a provider configuration table paired with
// the dialect parser each provider routes to.
type Registry struct {
	configs []ProviderConfig
	parsers map[model.Provider]parser.Parser
}

// New builds the default registry: one ProviderConfig + parser per
// concrete provider, plus the Other/generic catch-all.
func New(parsers map[model.Provider]parser.Parser) *Registry {
	return &Registry{
		configs: []ProviderConfig{
			{
				Provider:     model.ProviderClaudeCode,
				DefaultDir:   "~/.claude/projects",
				EnvVar:       "CHATVAULT_CLAUDE_CODE_DIR",
				FilePatterns: []string{"*.jsonl"},
			},
			{
				Provider:     model.ProviderCodex,
				DefaultDir:   "~/.codex/sessions",
				EnvVar:       "CHATVAULT_CODEX_DIR",
				FilePatterns: []string{"*.jsonl"},
			},
			{
				Provider:     model.ProviderGeminiCLI,
				DefaultDir:   "~/.gemini/tmp",
				EnvVar:       "CHATVAULT_GEMINI_CLI_DIR",
				FilePatterns: []string{"session-*.json"},
			},
			{
				Provider:     model.ProviderCursorAgent,
				DefaultDir:   "~/.cursor/chats",
				EnvVar:       "CHATVAULT_CURSOR_DIRS",
				FilePatterns: []string{"store.db", "*cursor*.db"},
			},
			{
				Provider:     model.ProviderOther,
				DefaultDir:   "",
				EnvVar:       "CHATVAULT_OTHER_DIR",
				FilePatterns: []string{"*.json"},
			},
		},
		parsers: parsers,
	}
}

// ResolveDir expands a ProviderConfig's default directory, honoring its
// environment-variable override and a leading "~".
func (c ProviderConfig) ResolveDir() string {
	if v := os.Getenv(c.EnvVar); v != "" {
		return expandHome(v)
	}
	return expandHome(c.DefaultDir)
}

func expandHome(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Detect identifies the dialect a single file belongs to, combining a
// filename/pattern match with a content sniff. Priority when more than one
// provider's pattern matches: directory-in-provider-root + filename-match >
// filename-match alone.
func (r *Registry) Detect(path string) (model.Provider, bool, error) {
	base := filepath.Base(path)
	var candidates []model.Provider
	for _, cfg := range r.configs {
		if matchesAny(base, cfg.FilePatterns) {
			candidates = append(candidates, cfg.Provider)
		}
	}
	if len(candidates) == 0 {
		return "", false, nil
	}

	var valid []model.Provider
	for _, p := range candidates {
		prs, ok := r.parsers[p]
		if !ok {
			continue
		}
		ok2, err := prs.Validate(path)
		if err != nil {
			continue
		}
		if ok2 {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		return "", false, nil
	}

	best := valid[0]
	bestScore := r.priorityScore(path, best)
	for _, p := range valid[1:] {
		if s := r.priorityScore(path, p); s > bestScore {
			best, bestScore = p, s
		}
	}
	return best, true, nil
}

func (r *Registry) priorityScore(path string, p model.Provider) int {
	score := 1 // already filename-matched to reach here
	for _, cfg := range r.configs {
		if cfg.Provider != p {
			continue
		}
		root := cfg.ResolveDir()
		if root != "" && strings.HasPrefix(filepath.Clean(path), filepath.Clean(root)) {
			score++
		}
	}
	return score
}

func matchesAny(name string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, _ := filepath.Match(pat, name); ok {
			return true
		}
	}
	return false
}

// ScanResult is one candidate file found by ScanDirectory.
type ScanResult struct {
	Path     string
	Provider model.Provider
}

// ScanDirectory walks root (recursively when recursive is true), returning
// every file whose dialect was detected and, when providerFilter is
// non-empty, whose provider is present in it. Symlink loops are guarded by
// canonical-path deduplication.
func (r *Registry) ScanDirectory(root string, recursive bool, providerFilter map[model.Provider]bool) ([]ScanResult, error) {
	var results []ScanResult
	visited := make(map[string]bool)

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries rather than aborting the scan
		}
		if d.IsDir() {
			if path != root && !recursive {
				return filepath.SkipDir
			}
			real, rerr := filepath.EvalSymlinks(path)
			if rerr == nil {
				if visited[real] {
					return filepath.SkipDir
				}
				visited[real] = true
			}
			return nil
		}
		provider, ok, derr := r.Detect(path)
		if derr != nil || !ok {
			return nil
		}
		if len(providerFilter) > 0 && !providerFilter[provider] {
			return nil
		}
		results = append(results, ScanResult{Path: path, Provider: provider})
		return nil
	}

	if err := filepath.WalkDir(root, walkFn); err != nil {
		return nil, err
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results, nil
}

// DiscoverProviders probes every configured provider's default directory
// and reports which are present on disk — the supplemented first-time
// setup report feature.
func (r *Registry) DiscoverProviders() map[model.Provider]bool {
	found := make(map[model.Provider]bool, len(r.configs))
	for _, cfg := range r.configs {
		dir := cfg.ResolveDir()
		if dir == "" {
			found[cfg.Provider] = false
			continue
		}
		info, err := os.Stat(dir)
		found[cfg.Provider] = err == nil && info.IsDir()
	}
	return found
}

// DefaultDirs returns the resolved (env-var-overridden, home-expanded)
// default directory for every configured provider that actually exists on
// disk — the set of roots `chatvault import` falls back to scanning when
// the caller gives no explicit paths.
func (r *Registry) DefaultDirs() map[model.Provider]string {
	dirs := make(map[model.Provider]string)
	for _, cfg := range r.configs {
		dir := cfg.ResolveDir()
		if dir == "" {
			continue
		}
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs[cfg.Provider] = dir
		}
	}
	return dirs
}

// ParserFor returns the dialect parser registered for a provider.
func (r *Registry) ParserFor(p model.Provider) (parser.Parser, bool) {
	prs, ok := r.parsers[p]
	return prs, ok
}
