package score

import (
	"fmt"

	"github.com/blackwell-systems/browsermend/internal/config"
)

// CurveBand is one segment of a penalty curve. A finding value matches the
// first band whose UpTo it does not exceed; the last band leaves UpTo zero
// to mean unbounded. Count-valued curves use an UpTo of 0.5 to separate
// zero from nonzero.
type CurveBand struct {
	UpTo     float64
	Penalty  int
	Severity Severity
	Label    string
}

// Curve maps a finding value to a penalty, a severity, and an impact phrase.
// Penalties are monotonic: nondecreasing across bands for higher-is-worse
// metrics, nonincreasing for lower-is-worse ones like free disk space.
type Curve struct {
	Name  string
	Bands []CurveBand
}

// Match returns the band the value falls in.
func (c Curve) Match(value float64) CurveBand {
	for _, b := range c.Bands {
		if b.UpTo == 0 || value <= b.UpTo {
			return b
		}
	}
	return c.Bands[len(c.Bands)-1]
}

func (c Curve) validate() error {
	if len(c.Bands) == 0 {
		return fmt.Errorf("curve %s has no bands", c.Name)
	}
	rising, falling := true, true
	for i := 1; i < len(c.Bands); i++ {
		prev, cur := c.Bands[i-1], c.Bands[i]
		if prev.UpTo == 0 {
			return fmt.Errorf("curve %s: only the last band may be unbounded", c.Name)
		}
		if cur.UpTo != 0 && cur.UpTo <= prev.UpTo {
			return fmt.Errorf("curve %s: band bounds must ascend", c.Name)
		}
		if cur.Penalty < prev.Penalty {
			rising = false
		}
		if cur.Penalty > prev.Penalty {
			falling = false
		}
	}
	if !rising && !falling {
		return fmt.Errorf("curve %s: penalties must be monotonic", c.Name)
	}
	return nil
}

const (
	mb = float64(1 << 20)
	gb = float64(1 << 30)
)

// defaultCurves returns the built-in penalty curves. Size bounds reflect
// observed real-world profiles: an HTTP cache is harmless to hundreds of
// megabytes while a service worker cache that size means trouble.
func defaultCurves() map[string]Curve {
	curves := []Curve{
		{Name: "cache", Bands: []CurveBand{
			{UpTo: 10 * mb, Severity: SeverityInfo, Label: "normal size"},
			{UpTo: 50 * mb, Penalty: 6, Severity: SeverityModerate, Label: "may impact performance"},
			{Penalty: 15, Severity: SeveritySevere, Label: "likely impacting performance"},
		}},
		{Name: "cache/Cache", Bands: []CurveBand{
			{UpTo: 50 * mb, Severity: SeverityInfo, Label: "HTTP cache helping page loads"},
			{UpTo: 200 * mb, Penalty: 6, Severity: SeverityModerate, Label: "may slow startup slightly"},
			{Penalty: 15, Severity: SeveritySevere, Label: "significantly slows startup and browsing"},
		}},
		{Name: "cache/WebKitCache", Bands: []CurveBand{
			{UpTo: 30 * mb, Severity: SeverityInfo, Label: "rendering cache healthy"},
			{UpTo: 150 * mb, Penalty: 6, Severity: SeverityModerate, Label: "page rendering may lag"},
			{Penalty: 15, Severity: SeveritySevere, Label: "severe rendering delays and memory usage"},
		}},
		{Name: "cache/GPUCache", Bands: []CurveBand{
			{UpTo: 20 * mb, Severity: SeverityInfo, Label: "GPU cache working efficiently"},
			{UpTo: 100 * mb, Penalty: 6, Severity: SeverityModerate, Label: "graphics performance degraded"},
			{Penalty: 15, Severity: SeveritySevere, Label: "GPU memory exhausted, graphics lag"},
		}},
		{Name: "cache/Code Cache", Bands: []CurveBand{
			{UpTo: 15 * mb, Severity: SeverityInfo, Label: "JavaScript cache optimal"},
			{UpTo: 80 * mb, Penalty: 6, Severity: SeverityModerate, Label: "JavaScript execution slower"},
			{Penalty: 15, Severity: SeveritySevere, Label: "severe JavaScript slowdowns"},
		}},
		{Name: "cache/IndexedDB", Bands: []CurveBand{
			{UpTo: 10 * mb, Severity: SeverityInfo, Label: "web app storage healthy"},
			{UpTo: 50 * mb, Penalty: 6, Severity: SeverityModerate, Label: "web app performance affected"},
			{Penalty: 15, Severity: SeveritySevere, Label: "web apps may crash or freeze"},
		}},
		{Name: "cache/Local Storage", Bands: []CurveBand{
			{UpTo: 5 * mb, Severity: SeverityInfo, Label: "site preferences stored efficiently"},
			{UpTo: 25 * mb, Penalty: 6, Severity: SeverityModerate, Label: "website loading slower"},
			{Penalty: 15, Severity: SeveritySevere, Label: "sites may lose settings or fail to load"},
		}},
		{Name: "cache/blob_storage", Bands: []CurveBand{
			{UpTo: 20 * mb, Severity: SeverityInfo, Label: "file transfers working well"},
			{UpTo: 100 * mb, Penalty: 6, Severity: SeverityModerate, Label: "file operations slower"},
			{Penalty: 15, Severity: SeveritySevere, Label: "file download and upload failures"},
		}},
		{Name: "cache/Service Worker", Bands: []CurveBand{
			{UpTo: 5 * mb, Severity: SeverityInfo, Label: "offline functionality working"},
			{UpTo: 30 * mb, Penalty: 6, Severity: SeverityModerate, Label: "web app performance degraded"},
			{Penalty: 15, Severity: SeveritySevere, Label: "offline web apps broken"},
		}},
		{Name: "cache_total", Bands: []CurveBand{
			{UpTo: 400 * mb, Severity: SeverityInfo, Label: "within normal range"},
			{UpTo: 800 * mb, Penalty: 15, Severity: SeverityModerate, Label: "slowing startup"},
			{Penalty: 30, Severity: SeveritySevere, Label: "severely bloated, slows all browsing"},
		}},
		{Name: "history", Bands: []CurveBand{
			{UpTo: 20 * mb, Severity: SeverityInfo, Label: "healthy size"},
			{UpTo: 50 * mb, Penalty: 10, Severity: SeverityModerate, Label: "slowing address bar suggestions"},
			{Penalty: 20, Severity: SeveritySevere, Label: "oversized, address bar and search lag"},
		}},
		{Name: "db_size", Bands: []CurveBand{
			{UpTo: 50 * mb, Severity: SeverityInfo, Label: "normal size"},
			{UpTo: 200 * mb, Penalty: 5, Severity: SeverityMinor, Label: "growing large"},
			{Penalty: 10, Severity: SeverityModerate, Label: "very large, queries slowing"},
		}},
		{Name: "wal_ratio", Bands: []CurveBand{
			{UpTo: 25, Severity: SeverityInfo, Label: "checkpointing normally"},
			{UpTo: 100, Penalty: 12, Severity: SeverityModerate, Label: "needs a checkpoint"},
			{Penalty: 18, Severity: SeveritySevere, Label: "write-ahead log outgrew the database"},
		}},
		{Name: "db_integrity", Bands: []CurveBand{
			{UpTo: 0.5, Severity: SeverityInfo, Label: "intact"},
			{Penalty: 25, Severity: SeverityCritical, Label: "failed its integrity check"},
		}},
		{Name: "db_locked", Bands: []CurveBand{
			{UpTo: 0.5, Severity: SeverityInfo, Label: "unlocked"},
			{Penalty: 3, Severity: SeverityMinor, Label: "held locked with the browser closed"},
		}},
		{Name: "dns", Bands: []CurveBand{
			{UpTo: 100, Severity: SeverityInfo, Label: "fast"},
			{UpTo: 300, Penalty: 4, Severity: SeverityMinor, Label: "slightly slow"},
			{UpTo: 500, Penalty: 8, Severity: SeverityModerate, Label: "delays every page load"},
			{Penalty: 12, Severity: SeveritySevere, Label: "very slow resolution"},
		}},
		{Name: "process_rss", Bands: []CurveBand{
			{UpTo: 1 * gb, Severity: SeverityInfo, Label: "normal memory use"},
			{UpTo: 2 * gb, Penalty: 5, Severity: SeverityMinor, Label: "using significant memory"},
			{Penalty: 12, Severity: SeveritySevere, Label: "memory bloated, restart recommended"},
		}},
		{Name: "process_cpu", Bands: []CurveBand{
			{UpTo: 50, Severity: SeverityInfo, Label: "normal CPU use"},
			{UpTo: 90, Penalty: 8, Severity: SeverityModerate, Label: "sustained high CPU"},
			{Penalty: 12, Severity: SeveritySevere, Label: "consuming nearly all CPU"},
		}},
		{Name: "process_uptime", Bands: []CurveBand{
			{UpTo: 24 * 3600, Severity: SeverityInfo, Label: "fresh session"},
			{UpTo: 72 * 3600, Penalty: 5, Severity: SeverityMinor, Label: "restart recommended"},
			{Penalty: 10, Severity: SeverityModerate, Label: "running for days, memory fragmentation likely"},
		}},
		{Name: "process_threads", Bands: []CurveBand{
			{UpTo: 100, Severity: SeverityInfo, Label: "normal thread count"},
			{UpTo: 300, Penalty: 3, Severity: SeverityMinor, Label: "high thread count"},
			{Penalty: 6, Severity: SeverityModerate, Label: "very high thread count"},
		}},
		{Name: "extension_count", Bands: []CurveBand{
			{UpTo: 15, Severity: SeverityInfo, Label: "reasonable extension count"},
			{UpTo: 30, Penalty: 6, Severity: SeverityModerate, Label: "each adds work to every page load"},
			{Penalty: 12, Severity: SeveritySevere, Label: "extension overload"},
		}},
		{Name: "extension_bytes", Bands: []CurveBand{
			{UpTo: 50 * mb, Severity: SeverityInfo, Label: "compact extension data"},
			{UpTo: 200 * mb, Penalty: 5, Severity: SeverityMinor, Label: "extensions storing a lot of data"},
			{Penalty: 10, Severity: SeverityModerate, Label: "extension data bloated"},
		}},
		{Name: "problem_extension", Bands: []CurveBand{
			{UpTo: 0.5, Severity: SeverityInfo, Label: "none"},
			{Penalty: 4, Severity: SeverityMinor, Label: "known to degrade performance"},
		}},
		{Name: "preference", Bands: []CurveBand{
			{UpTo: 0.5, Severity: SeverityInfo, Label: "optimal"},
			{Penalty: 4, Severity: SeverityMinor, Label: "suboptimal setting"},
		}},
		{Name: "disk_free", Bands: []CurveBand{
			{UpTo: 5 * gb, Penalty: 25, Severity: SeveritySevere, Label: "critically low disk space slows everything"},
			{UpTo: 10 * gb, Penalty: 15, Severity: SeverityModerate, Label: "low disk space"},
			{Severity: SeverityInfo, Label: "plenty of free space"},
		}},
		{Name: "memory", Bands: []CurveBand{
			{UpTo: 75, Severity: SeverityInfo, Label: "healthy"},
			{UpTo: 90, Penalty: 5, Severity: SeverityMinor, Label: "system memory pressure"},
			{Penalty: 10, Severity: SeverityModerate, Label: "system memory nearly exhausted"},
		}},
		{Name: "lock_files", Bands: []CurveBand{
			{UpTo: 0.5, Severity: SeverityInfo, Label: "none"},
			{Penalty: 10, Severity: SeverityModerate, Label: "left by an improper shutdown"},
		}},
		{Name: "write_activity", Bands: []CurveBand{
			{UpTo: 0.5, Severity: SeverityInfo, Label: "quiet"},
			{Penalty: 8, Severity: SeverityModerate, Label: "background processes still writing to the profile"},
		}},
		{Name: "crash_reports", Bands: []CurveBand{
			{UpTo: 2, Penalty: 8, Severity: SeverityModerate, Label: "recent crashes recorded"},
			{Penalty: 15, Severity: SeveritySevere, Label: "crashing repeatedly"},
		}},
		{Name: "version_backups", Bands: []CurveBand{
			{UpTo: 50 * mb, Penalty: 2, Severity: SeverityMinor, Label: "stale profile backups"},
			{UpTo: 500 * mb, Penalty: 5, Severity: SeverityMinor, Label: "stale profile backups piling up"},
			{Penalty: 10, Severity: SeverityModerate, Label: "stale profile backups wasting significant space"},
		}},
		{Name: "history_compare", Bands: []CurveBand{
			{UpTo: 3, Severity: SeverityInfo, Label: "comparable to sibling browser"},
			{UpTo: 10, Penalty: 5, Severity: SeverityMinor, Label: "far larger than sibling browser's"},
			{Penalty: 10, Severity: SeverityModerate, Label: "vastly larger than sibling browser's"},
		}},
	}

	out := make(map[string]Curve, len(curves))
	for _, c := range curves {
		out[c.Name] = c
	}
	return out
}

// applyOverrides replaces built-in curves with configured ones. Unknown
// curve names are rejected so typos surface at startup rather than silently
// scoring with defaults.
func applyOverrides(curves map[string]Curve, overrides map[string][]config.BandSpec) error {
	for name, specs := range overrides {
		if _, ok := curves[name]; !ok {
			return fmt.Errorf("no such curve %q", name)
		}
		bands := make([]CurveBand, 0, len(specs))
		for _, spec := range specs {
			sev, err := ParseSeverity(spec.Severity)
			if err != nil {
				return fmt.Errorf("curve %q: %w", name, err)
			}
			bands = append(bands, CurveBand{
				UpTo:     spec.UpTo,
				Penalty:  spec.Penalty,
				Severity: sev,
				Label:    spec.Label,
			})
		}
		c := Curve{Name: name, Bands: bands}
		if err := c.validate(); err != nil {
			return err
		}
		curves[name] = c
	}
	return nil
}
