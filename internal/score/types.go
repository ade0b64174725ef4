// Package score reduces probe findings to a 0-100 health score and a ranked
// list of issues. The reduction is pure and deterministic: the same findings
// always produce the same score, and every threshold lives in penalty-curve
// data rather than in the engine itself.
package score

import (
	"fmt"

	"github.com/blackwell-systems/browsermend/internal/probe"
)

// Severity ranks how much an issue hurts, from advisory to urgent.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityMinor
	SeverityModerate
	SeveritySevere
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityMinor:
		return "minor"
	case SeverityModerate:
		return "moderate"
	case SeveritySevere:
		return "severe"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a config string to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "info":
		return SeverityInfo, nil
	case "minor":
		return SeverityMinor, nil
	case "moderate":
		return SeverityModerate, nil
	case "severe":
		return SeveritySevere, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", s)
	}
}

// Band labels a score range.
type Band int

const (
	BandCritical Band = iota
	BandPoor
	BandFair
	BandGood
	BandExcellent
)

func (b Band) String() string {
	switch b {
	case BandExcellent:
		return "excellent"
	case BandGood:
		return "good"
	case BandFair:
		return "fair"
	case BandPoor:
		return "poor"
	case BandCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// BandFor maps a score value to its band.
func BandFor(value int) Band {
	switch {
	case value >= 90:
		return BandExcellent
	case value >= 75:
		return BandGood
	case value >= 50:
		return BandFair
	case value >= 25:
		return BandPoor
	default:
		return BandCritical
	}
}

// Op is the kind of remedy an ActionRef suggests.
type Op int

const (
	// OpDeletePath removes one file or directory tree.
	OpDeletePath Op = iota

	// OpStripSidecars removes a database's WAL and SHM sidecar files.
	OpStripSidecars

	// OpSetPreference writes one preference key back to its optimal value.
	OpSetPreference

	// OpPruneBackups removes the browser's own stale versioned profile
	// backups, keeping the newest few. The planner expands it to concrete
	// deletions.
	OpPruneBackups

	// OpClearLocks removes stale profile lock files. Expanded by the
	// planner like OpPruneBackups.
	OpClearLocks
)

// ActionRef is the machine-readable remedy attached to an issue. Issues
// whose remedy is advice (restart the browser, free disk space) carry none.
type ActionRef struct {
	Op Op

	// Path is the target file or directory, where the op needs one.
	Path string

	// Key and Value name a preference and its desired value for
	// OpSetPreference.
	Key   string
	Value any

	// Bytes estimates how much the remedy reclaims.
	Bytes int64
}

// Issue is one scored, user-facing problem.
type Issue struct {
	Severity    Severity
	Category    probe.Category
	Description string

	// SuggestedAction is nil for advice-only issues.
	SuggestedAction *ActionRef
}

// Score is the result of one evaluation: the health value, its band, and
// the issues found, ordered by severity descending then category priority.
type Score struct {
	Value  int
	Band   Band
	Issues []Issue
}

// Critical reports whether any issue reached critical severity.
func (s Score) Critical() bool {
	for _, issue := range s.Issues {
		if issue.Severity == SeverityCritical {
			return true
		}
	}
	return false
}
