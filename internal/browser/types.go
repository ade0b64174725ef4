package browser

import "time"

// ProcessInfo describes one running browser process.
type ProcessInfo struct {
	PID        int32
	Name       string
	RSSBytes   uint64
	CPUPercent float64
	StartedAt  time.Time
	Threads    int32
}

// Uptime returns how long the process has been running.
func (p ProcessInfo) Uptime() time.Duration {
	if p.StartedAt.IsZero() {
		return 0
	}
	return time.Since(p.StartedAt)
}

// PathInfo is one glob match with its stat details.
type PathInfo struct {
	Path      string
	SizeBytes int64
	ModTime   time.Time
	IsDir     bool
}

// DBStatus describes the structural state of one SQLite database file.
type DBStatus struct {
	Path         string
	SizeBytes    int64
	WALBytes     int64
	QuickCheckOK bool
	Locked       bool
}

// WALRatio returns the write-ahead-log size as a fraction of the main
// database size. Returns 0 when the main database is empty or missing.
func (s DBStatus) WALRatio() float64 {
	if s.SizeBytes <= 0 {
		return 0
	}
	return float64(s.WALBytes) / float64(s.SizeBytes)
}
