// Package probe turns raw profile telemetry into typed findings. A probe is
// one bounded measurement (a cache size, a database check, a DNS lookup);
// the runner executes a set of probes concurrently and collects their
// findings in a stable order. Probes measure, they never judge: thresholds
// and penalties live in the score package.
package probe

// Category classifies a finding by the part of the browser it concerns.
type Category int

const (
	Cache Category = iota
	Database
	Process
	Extension
	Network
	ProfileCorruption
)

// String returns the display name of the category.
func (c Category) String() string {
	switch c {
	case Cache:
		return "cache"
	case Database:
		return "database"
	case Process:
		return "process"
	case Extension:
		return "extension"
	case Network:
		return "network"
	case ProfileCorruption:
		return "profile"
	default:
		return "unknown"
	}
}

// Priority returns the fixed presentation priority of the category. Lower is
// more urgent. Issues of equal severity sort by this so output is stable.
func (c Category) Priority() int {
	switch c {
	case ProfileCorruption:
		return 0
	case Database:
		return 1
	case Extension:
		return 2
	case Process:
		return 3
	case Cache:
		return 4
	case Network:
		return 5
	default:
		return 6
	}
}

// Unit is the unit of a finding's value.
type Unit int

const (
	Bytes Unit = iota
	Seconds
	Count
	Milliseconds
	Percent
)

func (u Unit) String() string {
	switch u {
	case Bytes:
		return "bytes"
	case Seconds:
		return "s"
	case Count:
		return "count"
	case Milliseconds:
		return "ms"
	case Percent:
		return "%"
	default:
		return ""
	}
}

// Kind identifies what a finding measures, independent of which probe
// produced it. The score engine dispatches on Kind.
type Kind int

const (
	// KindUnknown marks a finding from a probe that failed to measure.
	KindUnknown Kind = iota

	// KindCacheSize is the byte size of one cache directory. Metric holds
	// the profile-relative cache path.
	KindCacheSize

	// KindCacheTotal is the combined size of all cache directories. No
	// probe emits it; the scoring engine synthesizes it from the
	// individual cache findings.
	KindCacheTotal

	// KindHistorySize is the combined byte size of the history files.
	KindHistorySize

	// KindDBSize, KindDBWALRatio, KindDBIntegrity and KindDBLocked describe
	// one SQLite database. Metric holds the profile-relative path. WAL
	// ratio is a percentage; integrity and locked are 0/1 counts.
	KindDBSize
	KindDBWALRatio
	KindDBIntegrity
	KindDBLocked

	// KindExtensionCount and KindExtensionBytes summarize the extensions
	// directory. KindProblemExtension flags one known-heavy extension;
	// Metric holds its name and Detail the reason.
	KindExtensionCount
	KindExtensionBytes
	KindProblemExtension

	// KindProcessCount and KindProcessRSS summarize running browser
	// processes. The per-process kinds carry the process name and PID in
	// Metric and Detail.
	KindProcessCount
	KindProcessRSS
	KindProcessCPU
	KindProcessUptime
	KindProcessThreads

	// KindDiskFree and KindMemoryUsed describe system resource pressure.
	KindDiskFree
	KindMemoryUsed

	// KindDNSLatency is one domain's resolution time; Metric holds the domain.
	KindDNSLatency

	// KindLockFiles counts stale profile lock files.
	KindLockFiles

	// KindWriteActivity counts profile mutations observed in a short
	// watch window while no browser process was visible.
	KindWriteActivity

	// KindCrashReports counts recent crash and hang logs.
	KindCrashReports

	// KindPreferenceAnomaly flags one preference set to a value known to
	// hurt performance. Metric holds the preference key.
	KindPreferenceAnomaly

	// KindVersionBackups reports bytes reclaimable from the browser's own
	// stale versioned profile backups.
	KindVersionBackups

	// KindHistoryCompare reports this browser's history size as a multiple
	// of a sibling browser's.
	KindHistoryCompare
)

// Finding is one measured fact about the profile or its environment.
// Findings are immutable once produced.
type Finding struct {
	// Probe is the name of the probe that produced the finding.
	Probe string

	Kind     Kind
	Category Category

	// Metric names what was measured: a cache path, a database path, a
	// DNS domain, a preference key.
	Metric string

	Value float64
	Unit  Unit

	// Path is the absolute filesystem path the finding concerns, when any.
	Path string

	// Detail carries free-form context for display.
	Detail string

	// Unknown marks a probe that failed to produce a measurement. Err
	// holds the reason. Unknown findings carry no Value.
	Unknown bool
	Err     string
}
