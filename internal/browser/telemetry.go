// Package browser collects raw telemetry from a browser profile and the
// surrounding system: directory sizes, process state, preference plists,
// SQLite database health, DNS timing, and profile write activity.
//
// The package deliberately contains no scoring or cleanup policy. Every
// function is a thin, error-wrapped query; interpretation belongs to the
// probe and score packages.
package browser

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// Telemetry is the live implementation backed by the local filesystem,
// process table, and network stack.
type Telemetry struct{}

// New returns a Telemetry reading from the local machine.
func New() *Telemetry {
	return &Telemetry{}
}

// SizeOf returns the total byte size of the file or directory tree at path.
// A missing path is reported as zero bytes, not an error; unreadable
// subtrees are skipped the same way.
func (t *Telemetry) SizeOf(ctx context.Context, path string) (int64, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return info.Size(), nil
	}

	var total int64
	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Permission denied or vanished mid-walk: skip, don't fail.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.Type().IsRegular() {
			if fi, err := d.Info(); err == nil {
				total += fi.Size()
			}
		}
		return nil
	})
	if walkErr != nil {
		return total, fmt.Errorf("walk %s: %w", path, walkErr)
	}
	return total, nil
}

// Exists reports whether path exists, along with its size when it does.
// Directories report the size of their immediate stat, not their contents.
func (t *Telemetry) Exists(path string) (bool, int64) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, 0
	}
	return true, info.Size()
}

// ListDir returns the immediate child names of a directory. A missing
// directory yields an empty list, not an error.
func (t *Telemetry) ListDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", path, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// CountRecent counts files under dir matching any of the glob patterns whose
// modification time is at or after since. A missing dir counts as zero.
func (t *Telemetry) CountRecent(dir string, patterns []string, since time.Time) (int, error) {
	count := 0
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return count, fmt.Errorf("glob %s: %w", pattern, err)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				continue
			}
			if !info.ModTime().Before(since) {
				count++
			}
		}
	}
	return count, nil
}

// GlobInfo returns the paths matching pattern along with their stat details,
// skipping matches that vanish between glob and stat. Directory sizes are the
// stat size, not the tree size; use SizeOf for that.
func (t *Telemetry) GlobInfo(pattern string) ([]PathInfo, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	out := make([]PathInfo, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		out = append(out, PathInfo{
			Path:      m,
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
			IsDir:     info.IsDir(),
		})
	}
	return out, nil
}

// DiskFree returns the free bytes on the filesystem containing path.
func (t *Telemetry) DiskFree(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, fmt.Errorf("disk usage for %s: %w", path, err)
	}
	return usage.Free, nil
}

// MemoryUsedPercent returns system memory utilization as a percentage.
func (t *Telemetry) MemoryUsedPercent() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("virtual memory: %w", err)
	}
	return vm.UsedPercent, nil
}
