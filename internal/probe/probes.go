package probe

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/blackwell-systems/browsermend/internal/config"
)

// Probe is one bounded measurement against a Source.
type Probe struct {
	// Name uniquely identifies the probe within a set.
	Name string

	// Category is used for the Unknown finding when the probe fails.
	Category Category

	run func(ctx context.Context, src Source) ([]Finding, error)
}

// crashWindow is how far back the crash report scan looks.
const crashWindow = 7 * 24 * time.Hour

// activityWindow is how long the write-activity probe watches the profile.
const activityWindow = 2 * time.Second

// BasicSet returns the probes of a standard diagnosis: cache and history
// sizes, database health, extension footprint, process presence, system
// resources, a single DNS lookup, and stale lock detection.
func BasicSet(p *config.Profile) []Probe {
	probes := []Probe{
		processProbe(p),
	}
	for _, target := range p.Caches {
		probes = append(probes, cacheProbe(p, target))
	}
	probes = append(probes, historyProbe(p))
	for _, target := range p.Databases {
		probes = append(probes, databaseProbe(p, target))
	}
	probes = append(probes,
		extensionsProbe(p),
		diskProbe(p),
		memoryProbe(),
		lockFilesProbe(p),
	)
	if len(p.DNSDomains) > 0 {
		probes = append(probes, dnsProbe(p.DNSDomains[0]))
	}
	return probes
}

// AdvancedSet returns the deeper probes run when a standard diagnosis does
// not explain the slowness: per-process detail, multi-domain DNS, known-bad
// extensions, preference anomalies, crash reports, background write
// activity, stale versioned backups, and a sibling-browser comparison.
func AdvancedSet(p *config.Profile) []Probe {
	probes := []Probe{
		processDetailProbe(p),
		problemExtensionsProbe(p),
		preferencesProbe(p),
		crashReportsProbe(p),
		writeActivityProbe(p),
		versionBackupsProbe(p),
	}
	if len(p.DNSDomains) > 1 {
		for _, domain := range p.DNSDomains[1:] {
			probes = append(probes, dnsProbe(domain))
		}
	}
	if p.CompareRoot != "" {
		probes = append(probes, historyCompareProbe(p))
	}
	return probes
}

func processProbe(p *config.Profile) Probe {
	return Probe{
		Name:     "process",
		Category: Process,
		run: func(ctx context.Context, src Source) ([]Finding, error) {
			procs, err := src.Processes(ctx, p.ProcessFilter)
			if err != nil {
				return nil, err
			}
			var rss uint64
			for _, proc := range procs {
				rss += proc.RSSBytes
			}
			return []Finding{
				{Kind: KindProcessCount, Category: Process, Metric: "running processes", Value: float64(len(procs)), Unit: Count},
				{Kind: KindProcessRSS, Category: Process, Metric: "process memory", Value: float64(rss), Unit: Bytes},
			}, nil
		},
	}
}

func cacheProbe(p *config.Profile, target config.CacheTarget) Probe {
	path := p.Path(target.Rel)
	return Probe{
		Name:     "cache/" + target.Rel,
		Category: Cache,
		run: func(ctx context.Context, src Source) ([]Finding, error) {
			size, err := src.SizeOf(ctx, path)
			if err != nil {
				return nil, err
			}
			if size == 0 {
				return nil, nil
			}
			return []Finding{{
				Kind:     KindCacheSize,
				Category: Cache,
				Metric:   target.Rel,
				Value:    float64(size),
				Unit:     Bytes,
				Path:     path,
			}}, nil
		},
	}
}

func historyProbe(p *config.Profile) Probe {
	return Probe{
		Name:     "history",
		Category: Database,
		run: func(ctx context.Context, src Source) ([]Finding, error) {
			var total int64
			for _, rel := range p.HistoryFiles {
				size, err := src.SizeOf(ctx, p.Path(rel))
				if err != nil {
					return nil, err
				}
				total += size
			}
			if total == 0 {
				return nil, nil
			}
			return []Finding{{
				Kind:     KindHistorySize,
				Category: Database,
				Metric:   "history",
				Value:    float64(total),
				Unit:     Bytes,
				Path:     p.Path(p.HistoryFiles[0]),
			}}, nil
		},
	}
}

func databaseProbe(p *config.Profile, target config.DatabaseTarget) Probe {
	path := p.Path(target.Rel)
	return Probe{
		Name:     "database/" + target.Rel,
		Category: Database,
		run: func(ctx context.Context, src Source) ([]Finding, error) {
			status, err := src.CheckDatabase(ctx, path)
			if err != nil {
				return nil, err
			}
			if status.SizeBytes == 0 {
				return nil, nil
			}

			findings := []Finding{
				{Kind: KindDBSize, Category: Database, Metric: target.Rel, Value: float64(status.SizeBytes), Unit: Bytes, Path: path, Detail: target.Description},
				{Kind: KindDBWALRatio, Category: Database, Metric: target.Rel, Value: status.WALRatio() * 100, Unit: Percent, Path: path, Detail: target.Description},
			}
			if status.Locked {
				findings = append(findings, Finding{
					Kind: KindDBLocked, Category: Database, Metric: target.Rel,
					Value: 1, Unit: Count, Path: path,
					Detail: "held locked by another process",
				})
			} else if !status.QuickCheckOK {
				findings = append(findings, Finding{
					Kind: KindDBIntegrity, Category: Database, Metric: target.Rel,
					Value: 1, Unit: Count, Path: path,
					Detail: "integrity check failed",
				})
			}
			return findings, nil
		},
	}
}

func extensionsProbe(p *config.Profile) Probe {
	dir := p.Path(p.ExtensionsDir)
	return Probe{
		Name:     "extensions",
		Category: Extension,
		run: func(ctx context.Context, src Source) ([]Finding, error) {
			names, err := src.ListDir(dir)
			if err != nil {
				return nil, err
			}
			if len(names) == 0 {
				return nil, nil
			}
			size, err := src.SizeOf(ctx, dir)
			if err != nil {
				return nil, err
			}
			return []Finding{
				{Kind: KindExtensionCount, Category: Extension, Metric: "installed extensions", Value: float64(len(names)), Unit: Count, Path: dir},
				{Kind: KindExtensionBytes, Category: Extension, Metric: "extension data", Value: float64(size), Unit: Bytes, Path: dir},
			}, nil
		},
	}
}

func diskProbe(p *config.Profile) Probe {
	return Probe{
		Name:     "disk",
		Category: Process,
		run: func(ctx context.Context, src Source) ([]Finding, error) {
			free, err := src.DiskFree(p.HomeDir)
			if err != nil {
				return nil, err
			}
			return []Finding{{
				Kind: KindDiskFree, Category: Process, Metric: "free disk space",
				Value: float64(free), Unit: Bytes,
			}}, nil
		},
	}
}

func memoryProbe() Probe {
	return Probe{
		Name:     "memory",
		Category: Process,
		run: func(ctx context.Context, src Source) ([]Finding, error) {
			used, err := src.MemoryUsedPercent()
			if err != nil {
				return nil, err
			}
			return []Finding{{
				Kind: KindMemoryUsed, Category: Process, Metric: "system memory used",
				Value: used, Unit: Percent,
			}}, nil
		},
	}
}

func dnsProbe(domain string) Probe {
	return Probe{
		Name:     "dns/" + domain,
		Category: Network,
		run: func(ctx context.Context, src Source) ([]Finding, error) {
			latency, err := src.DNSLatency(ctx, domain)
			if err != nil {
				return nil, err
			}
			return []Finding{{
				Kind: KindDNSLatency, Category: Network, Metric: domain,
				Value: float64(latency.Milliseconds()), Unit: Milliseconds,
			}}, nil
		},
	}
}

func lockFilesProbe(p *config.Profile) Probe {
	return Probe{
		Name:     "locks",
		Category: ProfileCorruption,
		run: func(ctx context.Context, src Source) ([]Finding, error) {
			count := 0
			first := ""
			for _, rel := range p.LockFiles {
				path := p.Path(rel)
				if ok, _ := src.Exists(path); ok {
					count++
					if first == "" {
						first = path
					}
				}
			}
			if count == 0 {
				return nil, nil
			}
			return []Finding{{
				Kind: KindLockFiles, Category: ProfileCorruption, Metric: "lock files",
				Value: float64(count), Unit: Count, Path: first,
			}}, nil
		},
	}
}

func processDetailProbe(p *config.Profile) Probe {
	return Probe{
		Name:     "process/detail",
		Category: Process,
		run: func(ctx context.Context, src Source) ([]Finding, error) {
			procs, err := src.Processes(ctx, p.ProcessFilter)
			if err != nil {
				return nil, err
			}
			if len(procs) == 0 {
				return nil, nil
			}

			var cpu float64
			var threads int32
			oldest := procs[0]
			for _, proc := range procs {
				cpu += proc.CPUPercent
				threads += proc.Threads
				if !proc.StartedAt.IsZero() &&
					(oldest.StartedAt.IsZero() || proc.StartedAt.Before(oldest.StartedAt)) {
					oldest = proc
				}
			}

			detail := fmt.Sprintf("%d processes led by %s (pid %d)", len(procs), oldest.Name, oldest.PID)
			return []Finding{
				{Kind: KindProcessCPU, Category: Process, Metric: "CPU usage", Value: cpu, Unit: Percent, Detail: detail},
				{Kind: KindProcessUptime, Category: Process, Metric: "session age", Value: oldest.Uptime().Seconds(), Unit: Seconds, Detail: detail},
				{Kind: KindProcessThreads, Category: Process, Metric: "thread count", Value: float64(threads), Unit: Count, Detail: detail},
			}, nil
		},
	}
}

func problemExtensionsProbe(p *config.Profile) Probe {
	dir := p.Path(p.ExtensionsDir)
	return Probe{
		Name:     "extensions/problem",
		Category: Extension,
		run: func(ctx context.Context, src Source) ([]Finding, error) {
			names, err := src.ListDir(dir)
			if err != nil {
				return nil, err
			}

			var findings []Finding
			for _, name := range names {
				lower := strings.ToLower(name)
				for fragment, reason := range p.ProblemExtensions {
					if strings.Contains(lower, fragment) {
						findings = append(findings, Finding{
							Kind: KindProblemExtension, Category: Extension,
							Metric: name, Value: 1, Unit: Count,
							Path: filepath.Join(dir, name), Detail: reason,
						})
						break
					}
				}
			}
			// Map iteration order must not leak into output.
			sort.Slice(findings, func(i, j int) bool { return findings[i].Metric < findings[j].Metric })
			return findings, nil
		},
	}
}

func preferencesProbe(p *config.Profile) Probe {
	path := p.Path(p.PreferencesFile)
	return Probe{
		Name:     "preferences",
		Category: Process,
		run: func(ctx context.Context, src Source) ([]Finding, error) {
			prefs, err := src.ReadPreferences(path)
			if err != nil {
				return nil, err
			}

			var findings []Finding
			for _, opt := range p.OptimalPrefs {
				current, set := prefs[opt.Key]
				if !set || prefEqual(current, opt.Value) {
					continue
				}
				findings = append(findings, Finding{
					Kind: KindPreferenceAnomaly, Category: Process,
					Metric: opt.Key, Value: 1, Unit: Count,
					Path: path, Detail: opt.Issue,
				})
			}
			return findings, nil
		},
	}
}

func crashReportsProbe(p *config.Profile) Probe {
	return Probe{
		Name:     "crashes",
		Category: ProfileCorruption,
		run: func(ctx context.Context, src Source) ([]Finding, error) {
			count, err := src.CountRecent(p.CrashReportDir, p.CrashReportGlobs, time.Now().Add(-crashWindow))
			if err != nil {
				return nil, err
			}
			if count == 0 {
				return nil, nil
			}
			return []Finding{{
				Kind: KindCrashReports, Category: ProfileCorruption, Metric: "recent crash reports",
				Value: float64(count), Unit: Count, Path: p.CrashReportDir,
			}}, nil
		},
	}
}

func writeActivityProbe(p *config.Profile) Probe {
	return Probe{
		Name:     "activity",
		Category: Process,
		run: func(ctx context.Context, src Source) ([]Finding, error) {
			count, err := src.WriteActivity(p.Root, activityWindow)
			if err != nil {
				return nil, err
			}
			return []Finding{{
				Kind: KindWriteActivity, Category: Process, Metric: "profile write activity",
				Value: float64(count), Unit: Count, Path: p.Root,
			}}, nil
		},
	}
}

func versionBackupsProbe(p *config.Profile) Probe {
	return Probe{
		Name:     "backups",
		Category: Cache,
		run: func(ctx context.Context, src Source) ([]Finding, error) {
			matches, err := src.GlobInfo(p.Path(p.VersionBackupGlob))
			if err != nil {
				return nil, err
			}
			if len(matches) <= p.VersionBackupKeep {
				return nil, nil
			}

			sort.Slice(matches, func(i, j int) bool {
				return matches[i].ModTime.After(matches[j].ModTime)
			})

			var reclaimable int64
			stale := matches[p.VersionBackupKeep:]
			for _, m := range stale {
				size := m.SizeBytes
				if m.IsDir {
					if s, err := src.SizeOf(ctx, m.Path); err == nil {
						size = s
					}
				}
				reclaimable += size
			}
			return []Finding{{
				Kind: KindVersionBackups, Category: Cache, Metric: "stale profile backups",
				Value: float64(reclaimable), Unit: Bytes,
				Detail: fmt.Sprintf("%d backups beyond the newest %d", len(stale), p.VersionBackupKeep),
			}}, nil
		},
	}
}

func historyCompareProbe(p *config.Profile) Probe {
	return Probe{
		Name:     "compare",
		Category: Database,
		run: func(ctx context.Context, src Source) ([]Finding, error) {
			ownPath := p.Path(p.HistoryFiles[0])
			own, err := src.SizeOf(ctx, ownPath)
			if err != nil {
				return nil, err
			}
			other, err := src.SizeOf(ctx, filepath.Join(p.CompareRoot, p.CompareHistory))
			if err != nil {
				return nil, err
			}
			if own == 0 || other == 0 {
				return nil, nil
			}
			return []Finding{{
				Kind: KindHistoryCompare, Category: Database, Metric: "history size ratio",
				Value: float64(own) / float64(other), Unit: Count, Path: ownPath,
				Detail: fmt.Sprintf("history is %.1fx the size of %s's", float64(own)/float64(other), p.CompareName),
			}}, nil
		},
	}
}

// prefEqual compares a live preference value with an expected one, treating
// all numeric representations as equivalent. Plists decode integers as
// uint64 while expected values may be typed differently.
func prefEqual(a, b any) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum || bNum {
		return aNum && bNum && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
