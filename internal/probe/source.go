package probe

import (
	"context"
	"time"

	"github.com/blackwell-systems/browsermend/internal/browser"
)

// Source supplies the raw telemetry probes measure. browser.Telemetry is
// the live implementation; tests substitute a fake.
type Source interface {
	// SizeOf returns the recursive byte size of a file or directory tree.
	// Missing paths are zero, not errors.
	SizeOf(ctx context.Context, path string) (int64, error)

	// Exists reports whether path exists and its immediate stat size.
	Exists(path string) (bool, int64)

	// ListDir returns the child names of a directory, nil when missing.
	ListDir(path string) ([]string, error)

	// CountRecent counts files under dir matching the glob patterns and
	// modified at or after since.
	CountRecent(dir string, patterns []string, since time.Time) (int, error)

	// GlobInfo returns glob matches with their stat details.
	GlobInfo(pattern string) ([]browser.PathInfo, error)

	// DiskFree returns free bytes on the filesystem containing path.
	DiskFree(path string) (uint64, error)

	// MemoryUsedPercent returns system memory utilization.
	MemoryUsedPercent() (float64, error)

	// Processes returns running processes whose name contains filter.
	Processes(ctx context.Context, filter string) ([]browser.ProcessInfo, error)

	// CheckDatabase inspects one SQLite database's size and integrity.
	CheckDatabase(ctx context.Context, path string) (browser.DBStatus, error)

	// ReadPreferences decodes a preference plist, empty map when missing.
	ReadPreferences(path string) (map[string]any, error)

	// DNSLatency resolves a domain and returns the lookup duration.
	DNSLatency(ctx context.Context, domain string) (time.Duration, error)

	// WriteActivity counts profile mutations during a short watch window.
	WriteActivity(root string, window time.Duration) (int, error)
}
