package registry

import (
	"os"
	"strings"
)

// wellKnownSegments are the intermediate path segments used as a fallback
// anchor for project-name inference when the encoded-path reconstruction
// fails to find a real directory.
var wellKnownSegments = map[string]bool{
	"project": true, "projects": true, "workspace": true,
	"code": true, "development": true, "dev": true,
}

var systemDirs = map[string]bool{
	"home": true, "users": true, "usr": true, "root": true, "var": true,
}

// maxEncodedComponents guards the DFS in ReconstructPath against
// pathological partitioning explosions: the recursion depth is capped to
// the number of hyphens in the encoded name, per the design notes, and
// this is a hard ceiling on how many such hyphens are considered at all.
const maxEncodedComponents = 40

// ReconstructPath attempts to recover the original absolute path from a
// known encoded-path convention: a directory name beginning with '-' whose
// components are '-'-separated, where the '-' sometimes represents a path
// separator and sometimes a literal hyphen inside a single directory name.
// It tries every partition of the components against the real filesystem
// and returns the longest path that exists.
func ReconstructPath(encodedDirName string) (string, bool) {
	trimmed := strings.TrimPrefix(encodedDirName, "-")
	if trimmed == "" {
		return "", false
	}
	parts := strings.Split(trimmed, "-")
	if len(parts) > maxEncodedComponents {
		parts = parts[:maxEncodedComponents]
	}

	visited := make(map[string]bool)
	best := ""

	var dfs func(idx int, current []string)
	dfs = func(idx int, current []string) {
		if idx == len(parts) {
			candidate := "/" + strings.Join(current, "/")
			if visited[candidate] {
				return
			}
			visited[candidate] = true
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				if len(candidate) > len(best) {
					best = candidate
				}
			}
			return
		}
		// Option 1: this component starts a new path segment.
		next := make([]string, len(current), len(current)+1)
		copy(next, current)
		dfs(idx+1, append(next, parts[idx]))

		// Option 2: this component is a literal hyphen continuation of the
		// previous path segment.
		if len(current) > 0 {
			merged := make([]string, len(current))
			copy(merged, current)
			merged[len(merged)-1] = merged[len(merged)-1] + "-" + parts[idx]
			dfs(idx+1, merged)
		}
	}
	dfs(0, nil)
	return best, best != ""
}

// InferProjectName derives a project-name hint from an encoded directory
// name when no explicit project info was carried by the source dialect.
// It first tries filesystem reconstruction, then falls back to locating the
// last well-known intermediate segment, then to the last non-system-directory
// component.
func InferProjectName(encodedDirName string) string {
	if path, ok := ReconstructPath(encodedDirName); ok {
		segments := strings.Split(strings.Trim(path, "/"), "/")
		return segments[len(segments)-1]
	}

	trimmed := strings.TrimPrefix(encodedDirName, "-")
	parts := strings.Split(trimmed, "-")
	for i := len(parts) - 2; i >= 0; i-- {
		if wellKnownSegments[strings.ToLower(parts[i])] {
			return strings.Join(parts[i+1:], "-")
		}
	}

	for i := len(parts) - 1; i >= 0; i-- {
		if !systemDirs[strings.ToLower(parts[i])] {
			return parts[i]
		}
	}
	if len(parts) > 0 {
		return parts[len(parts)-1]
	}
	return ""
}
