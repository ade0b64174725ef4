package score

import (
	"fmt"
	"sort"

	"github.com/blackwell-systems/browsermend/internal/config"
	"github.com/blackwell-systems/browsermend/internal/probe"
)

// Engine evaluates findings against penalty curves. Construction resolves
// all configuration; evaluation is a pure function of the findings.
type Engine struct {
	curves      map[string]Curve
	impactByRel map[string]string
	cleanSafe   map[string]bool
	optimal     map[string]config.PrefSetting
}

// NewEngine builds an engine for one profile. The settings supply the WAL
// ratio threshold and any curve overrides; both are validated here so a bad
// config fails before any probe runs.
func NewEngine(profile *config.Profile, settings *config.Settings) (*Engine, error) {
	curves := defaultCurves()

	// The WAL threshold knob moves the healthy bound of the ratio curve.
	wal := curves["wal_ratio"]
	wal.Bands[0].UpTo = settings.WALRatio * 100
	curves["wal_ratio"] = wal

	if err := applyOverrides(curves, settings.Curves); err != nil {
		return nil, fmt.Errorf("curve config: %w", err)
	}
	for _, c := range curves {
		if err := c.validate(); err != nil {
			return nil, err
		}
	}

	e := &Engine{
		curves:      curves,
		impactByRel: make(map[string]string, len(profile.Caches)),
		cleanSafe:   make(map[string]bool, len(profile.Caches)),
		optimal:     make(map[string]config.PrefSetting, len(profile.OptimalPrefs)),
	}
	for _, c := range profile.Caches {
		e.impactByRel[c.Rel] = c.Impact
		e.cleanSafe[c.Rel] = c.CleanSafe
	}
	for _, pref := range profile.OptimalPrefs {
		e.optimal[pref.Key] = pref
	}
	return e, nil
}

// Evaluate reduces findings to a score. Starting from 100, each finding is
// matched against its curve and the band's penalty subtracted, floored at
// zero. Bands above info severity also emit an issue. Unknown findings are
// never scored. Lock, write-activity and database-lock findings are skipped
// while the browser is running, when they are expected.
func (e *Engine) Evaluate(findings []probe.Finding) Score {
	running := browserRunning(findings)
	scored := make([]probe.Finding, 0, len(findings)+1)
	var totalCache float64

	for _, f := range findings {
		if f.Unknown {
			continue
		}
		if f.Kind == probe.KindCacheSize {
			totalCache += f.Value
		}
		if running {
			switch f.Kind {
			case probe.KindLockFiles, probe.KindWriteActivity, probe.KindDBLocked:
				continue
			}
		}
		scored = append(scored, f)
	}
	if totalCache > 0 {
		scored = append(scored, probe.Finding{
			Kind:     probe.KindCacheTotal,
			Category: probe.Cache,
			Metric:   "total cache",
			Value:    totalCache,
			Unit:     probe.Bytes,
		})
	}

	penalty := 0
	var issues []Issue
	for _, f := range scored {
		curve, ok := e.curveFor(f)
		if !ok {
			continue
		}
		band := curve.Match(f.Value)
		penalty += band.Penalty
		if band.Severity > SeverityInfo {
			issues = append(issues, Issue{
				Severity:        band.Severity,
				Category:        f.Category,
				Description:     e.describe(f, band),
				SuggestedAction: e.suggest(f, band),
			})
		}
	}

	value := 100 - penalty
	if value < 0 {
		value = 0
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Severity != issues[j].Severity {
			return issues[i].Severity > issues[j].Severity
		}
		if issues[i].Category.Priority() != issues[j].Category.Priority() {
			return issues[i].Category.Priority() < issues[j].Category.Priority()
		}
		return issues[i].Description < issues[j].Description
	})

	return Score{Value: value, Band: BandFor(value), Issues: issues}
}

func browserRunning(findings []probe.Finding) bool {
	for _, f := range findings {
		if f.Kind == probe.KindProcessCount && !f.Unknown && f.Value > 0 {
			return true
		}
	}
	return false
}

// curveFor resolves the curve for a finding. Kinds without a curve, like
// the raw process count, carry no penalty.
func (e *Engine) curveFor(f probe.Finding) (Curve, bool) {
	name := ""
	switch f.Kind {
	case probe.KindCacheSize:
		if impact := e.impactByRel[f.Metric]; impact != "" {
			if c, ok := e.curves["cache/"+impact]; ok {
				return c, true
			}
		}
		name = "cache"
	case probe.KindCacheTotal:
		name = "cache_total"
	case probe.KindHistorySize:
		name = "history"
	case probe.KindDBSize:
		name = "db_size"
	case probe.KindDBWALRatio:
		name = "wal_ratio"
	case probe.KindDBIntegrity:
		name = "db_integrity"
	case probe.KindDBLocked:
		name = "db_locked"
	case probe.KindDNSLatency:
		name = "dns"
	case probe.KindProcessRSS:
		name = "process_rss"
	case probe.KindProcessCPU:
		name = "process_cpu"
	case probe.KindProcessUptime:
		name = "process_uptime"
	case probe.KindProcessThreads:
		name = "process_threads"
	case probe.KindExtensionCount:
		name = "extension_count"
	case probe.KindExtensionBytes:
		name = "extension_bytes"
	case probe.KindProblemExtension:
		name = "problem_extension"
	case probe.KindPreferenceAnomaly:
		name = "preference"
	case probe.KindDiskFree:
		name = "disk_free"
	case probe.KindMemoryUsed:
		name = "memory"
	case probe.KindLockFiles:
		name = "lock_files"
	case probe.KindWriteActivity:
		name = "write_activity"
	case probe.KindCrashReports:
		name = "crash_reports"
	case probe.KindVersionBackups:
		name = "version_backups"
	case probe.KindHistoryCompare:
		name = "history_compare"
	default:
		return Curve{}, false
	}
	c, ok := e.curves[name]
	return c, ok
}

func (e *Engine) describe(f probe.Finding, band CurveBand) string {
	switch f.Kind {
	case probe.KindCacheSize:
		return fmt.Sprintf("%s directory at %s, %s", f.Metric, formatBytes(f.Value), band.Label)
	case probe.KindCacheTotal:
		return fmt.Sprintf("caches total %s, %s", formatBytes(f.Value), band.Label)
	case probe.KindHistorySize:
		return fmt.Sprintf("history database at %s, %s", formatBytes(f.Value), band.Label)
	case probe.KindDBSize:
		return fmt.Sprintf("%s database at %s, %s", f.Metric, formatBytes(f.Value), band.Label)
	case probe.KindDBWALRatio:
		return fmt.Sprintf("%s write-ahead log at %.0f%% of database size, %s", f.Metric, f.Value, band.Label)
	case probe.KindDBIntegrity, probe.KindDBLocked:
		return fmt.Sprintf("%s database %s", f.Metric, band.Label)
	case probe.KindDNSLatency:
		return fmt.Sprintf("DNS lookup for %s took %.0fms, %s", f.Metric, f.Value, band.Label)
	case probe.KindProcessRSS:
		return fmt.Sprintf("browser using %s of memory, %s", formatBytes(f.Value), band.Label)
	case probe.KindProcessCPU:
		return fmt.Sprintf("browser at %.0f%% CPU, %s", f.Value, band.Label)
	case probe.KindProcessUptime:
		return fmt.Sprintf("browser session %s old, %s", formatAge(f.Value), band.Label)
	case probe.KindProcessThreads:
		return fmt.Sprintf("%.0f threads across browser processes, %s", f.Value, band.Label)
	case probe.KindExtensionCount:
		return fmt.Sprintf("%.0f extensions installed, %s", f.Value, band.Label)
	case probe.KindExtensionBytes:
		return fmt.Sprintf("extension data at %s, %s", formatBytes(f.Value), band.Label)
	case probe.KindProblemExtension, probe.KindPreferenceAnomaly:
		return fmt.Sprintf("%s: %s", f.Metric, f.Detail)
	case probe.KindDiskFree:
		return fmt.Sprintf("%s free on disk, %s", formatBytes(f.Value), band.Label)
	case probe.KindMemoryUsed:
		return fmt.Sprintf("system memory at %.0f%% used, %s", f.Value, band.Label)
	case probe.KindLockFiles:
		return fmt.Sprintf("%.0f lock file(s) present with the browser closed, %s", f.Value, band.Label)
	case probe.KindWriteActivity:
		return fmt.Sprintf("%s (%.0f writes observed)", band.Label, f.Value)
	case probe.KindCrashReports:
		return fmt.Sprintf("%.0f crash reports in the last week, %s", f.Value, band.Label)
	case probe.KindVersionBackups:
		return fmt.Sprintf("%s in stale profile backups, %s", formatBytes(f.Value), f.Detail)
	case probe.KindHistoryCompare:
		if f.Detail != "" {
			return f.Detail
		}
		return fmt.Sprintf("history %.1fx the size of the sibling browser's, %s", f.Value, band.Label)
	default:
		return fmt.Sprintf("%s: %s", f.Metric, band.Label)
	}
}

// suggest attaches a machine-readable remedy where one is safe. Cache
// deletions are only suggested for directories marked safe to clean;
// storage-like caches get advice, not actions.
func (e *Engine) suggest(f probe.Finding, band CurveBand) *ActionRef {
	switch f.Kind {
	case probe.KindCacheSize:
		if band.Severity >= SeveritySevere && e.cleanSafe[f.Metric] {
			return &ActionRef{Op: OpDeletePath, Path: f.Path, Bytes: int64(f.Value)}
		}
	case probe.KindHistorySize:
		if band.Severity >= SeveritySevere {
			return &ActionRef{Op: OpStripSidecars, Path: f.Path}
		}
	case probe.KindDBWALRatio:
		if band.Severity >= SeverityModerate {
			return &ActionRef{Op: OpStripSidecars, Path: f.Path}
		}
	case probe.KindPreferenceAnomaly:
		if pref, ok := e.optimal[f.Metric]; ok {
			return &ActionRef{Op: OpSetPreference, Path: f.Path, Key: pref.Key, Value: pref.Value}
		}
	case probe.KindVersionBackups:
		return &ActionRef{Op: OpPruneBackups, Bytes: int64(f.Value)}
	case probe.KindLockFiles:
		return &ActionRef{Op: OpClearLocks}
	}
	return nil
}

func formatBytes(v float64) string {
	switch {
	case v >= gb:
		return fmt.Sprintf("%.1f GB", v/gb)
	case v >= mb:
		return fmt.Sprintf("%.1f MB", v/mb)
	case v >= 1024:
		return fmt.Sprintf("%.1f KB", v/1024)
	default:
		return fmt.Sprintf("%.0f B", v)
	}
}

func formatAge(seconds float64) string {
	hours := seconds / 3600
	if hours >= 48 {
		return fmt.Sprintf("%.0f days", hours/24)
	}
	return fmt.Sprintf("%.0f hours", hours)
}
