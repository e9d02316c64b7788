// Package exclude implements the path-exclusion predicate the store applies
// to file entries before merging them into a checkpoint. Callers own the
// pattern list; this package only evaluates it.
package exclude

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPatterns covers the usual secret-bearing paths. Configuration may
// replace the list entirely.
var DefaultPatterns = []string{
	"**/.env",
	"**/.env.*",
	"**/*.pem",
	"**/*.key",
	"**/secrets/**",
	"**/node_modules/**",
}

// ShouldExclude reports whether path matches any of the doublestar glob
// patterns. Matching is attempted against the full slash-normalized path
// and its base name, so both "**/*.pem" and "*.pem" behave as expected.
// Invalid patterns are skipped rather than treated as matches.
func ShouldExclude(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	normalized := filepath.ToSlash(path)
	base := filepath.Base(normalized)

	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		if ok, err := doublestar.Match(pattern, normalized); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}

	return false
}

// Filter returns the paths from files that survive the pattern list,
// preserving order. The slice type is generic over anything exposing a
// path, but the store only needs string paths plus a keep callback.
func Filter[T any](items []T, pathOf func(T) string, patterns []string) []T {
	if len(patterns) == 0 {
		return items
	}

	kept := items[:0:0]
	for _, item := range items {
		if !ShouldExclude(pathOf(item), patterns) {
			kept = append(kept, item)
		}
	}

	return kept
}
