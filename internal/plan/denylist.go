package plan

import (
	"path/filepath"
	"strings"
)

// Denied reports whether a path's base name matches any denylist pattern.
// Matching is case-insensitive: credential and bookmark files must survive
// regardless of how the browser happens to case them on disk.
func Denied(path string, patterns []string) bool {
	base := strings.ToLower(filepath.Base(path))
	for _, pattern := range patterns {
		if ok, err := filepath.Match(strings.ToLower(pattern), base); err == nil && ok {
			return true
		}
	}
	return false
}
