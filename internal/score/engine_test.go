package score

import (
	"reflect"
	"strings"
	"testing"

	"github.com/blackwell-systems/browsermend/internal/config"
	"github.com/blackwell-systems/browsermend/internal/probe"
)

const testMB = 1024 * 1024

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(config.DefaultProfile("/u"), config.DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func cacheFinding(rel string, sizeMB float64) probe.Finding {
	return probe.Finding{
		Kind:     probe.KindCacheSize,
		Category: probe.Cache,
		Metric:   rel,
		Value:    sizeMB * testMB,
		Unit:     probe.Bytes,
		Path:     "/u/profile/" + rel,
	}
}

func TestEvaluateBloatedCaches(t *testing.T) {
	e := newTestEngine(t)
	findings := []probe.Finding{
		cacheFinding("Cache", 847),
		cacheFinding("WebKitCache", 235),
	}

	s := e.Evaluate(findings)

	if s.Value > 50 {
		t.Errorf("score = %d, want <= 50 for badly bloated caches", s.Value)
	}
	if s.Band != BandPoor && s.Band != BandCritical {
		t.Errorf("band = %s, want poor or critical", s.Band)
	}

	var cacheIdx, webkitIdx = -1, -1
	var cacheSev, webkitSev Severity
	for i, issue := range s.Issues {
		if strings.HasPrefix(issue.Description, "Cache directory") {
			cacheIdx, cacheSev = i, issue.Severity
		}
		if strings.HasPrefix(issue.Description, "WebKitCache directory") {
			webkitIdx, webkitSev = i, issue.Severity
		}
	}
	if cacheIdx == -1 || webkitIdx == -1 {
		t.Fatalf("missing per-cache issues: %+v", s.Issues)
	}
	if cacheSev < webkitSev {
		t.Errorf("Cache severity %s below WebKitCache severity %s", cacheSev, webkitSev)
	}
	if cacheIdx > webkitIdx {
		t.Errorf("Cache issue at %d after WebKitCache at %d despite higher severity", cacheIdx, webkitIdx)
	}

	// 847MB of deletable HTTP cache should come with a delete suggestion.
	action := s.Issues[cacheIdx].SuggestedAction
	if action == nil || action.Op != OpDeletePath || action.Bytes != int64(847*testMB) {
		t.Errorf("Cache suggested action = %+v", action)
	}
}

func TestEvaluateSynthesizesTotalCache(t *testing.T) {
	e := newTestEngine(t)
	// Six caches of 150MB each: every one only moderate on its own curve,
	// but together 900MB, past the severe total threshold.
	var findings []probe.Finding
	for _, rel := range []string{"Cache", "GPUCache", "Code Cache", "blob_storage", "CachedData", "QuotaManager"} {
		findings = append(findings, cacheFinding(rel, 150))
	}

	s := e.Evaluate(findings)

	found := false
	for _, issue := range s.Issues {
		if strings.HasPrefix(issue.Description, "caches total") && issue.Severity == SeveritySevere {
			found = true
		}
	}
	if !found {
		t.Errorf("no severe total-cache issue in %+v", s.Issues)
	}
}

func TestEvaluateWALRatio(t *testing.T) {
	e := newTestEngine(t)
	findings := []probe.Finding{{
		Kind:     probe.KindDBWALRatio,
		Category: probe.Database,
		Metric:   "Defaults/history",
		Value:    40,
		Unit:     probe.Percent,
		Path:     "/u/db/history",
	}}

	s := e.Evaluate(findings)

	if len(s.Issues) != 1 {
		t.Fatalf("got %d issues, want 1: %+v", len(s.Issues), s.Issues)
	}
	issue := s.Issues[0]
	if issue.Category != probe.Database {
		t.Errorf("category = %s, want database", issue.Category)
	}
	if issue.Severity < SeverityModerate {
		t.Errorf("severity = %s, want at least moderate", issue.Severity)
	}
	if issue.SuggestedAction == nil || issue.SuggestedAction.Op != OpStripSidecars {
		t.Errorf("suggested action = %+v, want sidecar strip", issue.SuggestedAction)
	}
	if issue.SuggestedAction.Path != "/u/db/history" {
		t.Errorf("action path = %q", issue.SuggestedAction.Path)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	e := newTestEngine(t)
	findings := []probe.Finding{
		cacheFinding("Cache", 300),
		cacheFinding("WebKitCache", 40),
		{Kind: probe.KindDNSLatency, Category: probe.Network, Metric: "google.com", Value: 450, Unit: probe.Milliseconds},
		{Kind: probe.KindExtensionCount, Category: probe.Extension, Metric: "installed extensions", Value: 22, Unit: probe.Count},
	}

	first := e.Evaluate(findings)
	for i := 0; i < 5; i++ {
		if got := e.Evaluate(findings); !reflect.DeepEqual(got, first) {
			t.Fatalf("evaluation %d differed:\n%+v\nvs\n%+v", i, got, first)
		}
	}
}

func TestEvaluateMonotonic(t *testing.T) {
	e := newTestEngine(t)
	prev := 101
	for sizeMB := float64(0); sizeMB <= 1200; sizeMB += 25 {
		s := e.Evaluate([]probe.Finding{cacheFinding("Cache", sizeMB)})
		if s.Value > prev {
			t.Fatalf("score rose from %d to %d when Cache grew to %.0fMB", prev, s.Value, sizeMB)
		}
		prev = s.Value
	}
}

func TestEvaluateFloorsAtZero(t *testing.T) {
	e := newTestEngine(t)
	var findings []probe.Finding
	for _, c := range config.DefaultProfile("/u").Caches {
		findings = append(findings, cacheFinding(c.Rel, 2000))
	}
	findings = append(findings,
		probe.Finding{Kind: probe.KindHistorySize, Category: probe.Database, Metric: "history", Value: 500 * testMB, Unit: probe.Bytes},
		probe.Finding{Kind: probe.KindDiskFree, Category: probe.Process, Metric: "free disk space", Value: 2 * 1024 * testMB, Unit: probe.Bytes},
	)

	s := e.Evaluate(findings)
	if s.Value != 0 {
		t.Errorf("score = %d, want floor at 0", s.Value)
	}
	if s.Band != BandCritical {
		t.Errorf("band = %s, want critical", s.Band)
	}
}

func TestEvaluateSkipsUnknown(t *testing.T) {
	e := newTestEngine(t)
	s := e.Evaluate([]probe.Finding{
		{Kind: probe.KindUnknown, Category: probe.Network, Unknown: true, Err: "resolver down"},
	})
	if s.Value != 100 {
		t.Errorf("score = %d, unknown findings must not be scored", s.Value)
	}
	if len(s.Issues) != 0 {
		t.Errorf("issues = %+v, unknown findings must not emit issues", s.Issues)
	}
}

func TestEvaluateLocksDependOnRunningState(t *testing.T) {
	e := newTestEngine(t)
	lock := probe.Finding{
		Kind: probe.KindLockFiles, Category: probe.ProfileCorruption,
		Metric: "lock files", Value: 2, Unit: probe.Count,
	}
	procs := func(n float64) probe.Finding {
		return probe.Finding{Kind: probe.KindProcessCount, Category: probe.Process, Metric: "running processes", Value: n, Unit: probe.Count}
	}

	running := e.Evaluate([]probe.Finding{procs(3), lock})
	if len(running.Issues) != 0 {
		t.Errorf("lock files while running produced issues: %+v", running.Issues)
	}

	stopped := e.Evaluate([]probe.Finding{procs(0), lock})
	if len(stopped.Issues) != 1 {
		t.Fatalf("lock files while stopped produced %d issues, want 1", len(stopped.Issues))
	}
	issue := stopped.Issues[0]
	if issue.Category != probe.ProfileCorruption {
		t.Errorf("category = %s, want profile", issue.Category)
	}
	if issue.SuggestedAction == nil || issue.SuggestedAction.Op != OpClearLocks {
		t.Errorf("suggested action = %+v, want lock clearing", issue.SuggestedAction)
	}
}

func TestEvaluateDiskFreeLowerIsWorse(t *testing.T) {
	e := newTestEngine(t)
	disk := func(gbFree float64) Score {
		return e.Evaluate([]probe.Finding{{
			Kind: probe.KindDiskFree, Category: probe.Process,
			Metric: "free disk space", Value: gbFree * 1024 * testMB, Unit: probe.Bytes,
		}})
	}

	if s := disk(50); s.Value != 100 || len(s.Issues) != 0 {
		t.Errorf("50GB free scored %d with %d issues", s.Value, len(s.Issues))
	}
	if s := disk(8); s.Value != 85 {
		t.Errorf("8GB free scored %d, want 85", s.Value)
	}
	if s := disk(3); s.Value != 75 || s.Issues[0].Severity != SeveritySevere {
		t.Errorf("3GB free scored %d (%+v)", s.Value, s.Issues)
	}
}

func TestEvaluateCorruptDatabaseIsCritical(t *testing.T) {
	e := newTestEngine(t)
	s := e.Evaluate([]probe.Finding{{
		Kind: probe.KindDBIntegrity, Category: probe.Database,
		Metric: "Defaults/history", Value: 1, Unit: probe.Count,
	}})

	if !s.Critical() {
		t.Fatal("corrupt database did not produce a critical issue")
	}
	if s.Issues[0].SuggestedAction != nil {
		t.Error("corruption should be advice-only, repair is the rescue path")
	}
}

func TestEvaluatePreferenceSuggestion(t *testing.T) {
	e := newTestEngine(t)
	s := e.Evaluate([]probe.Finding{{
		Kind: probe.KindPreferenceAnomaly, Category: probe.Process,
		Metric: "WebKitDNSPrefetchingEnabled", Value: 1, Unit: probe.Count,
		Path: "/u/preferences.plist", Detail: "DNS prefetching adds background network requests",
	}})

	if len(s.Issues) != 1 {
		t.Fatalf("issues = %+v", s.Issues)
	}
	action := s.Issues[0].SuggestedAction
	if action == nil || action.Op != OpSetPreference {
		t.Fatalf("suggested action = %+v", action)
	}
	if action.Key != "WebKitDNSPrefetchingEnabled" {
		t.Errorf("action key = %q", action.Key)
	}
	if v, ok := action.Value.(bool); !ok || v {
		t.Errorf("action value = %v, want optimal false", action.Value)
	}
}

func TestEvaluateStorageCachesAdviceOnly(t *testing.T) {
	e := newTestEngine(t)
	s := e.Evaluate([]probe.Finding{cacheFinding("IndexedDB", 400)})

	if len(s.Issues) == 0 {
		t.Fatal("oversized IndexedDB produced no issue")
	}
	for _, issue := range s.Issues {
		if issue.SuggestedAction != nil && issue.SuggestedAction.Op == OpDeletePath {
			t.Errorf("IndexedDB must never get a delete action: %+v", issue)
		}
	}
}

func TestNewEngineRejectsBadOverrides(t *testing.T) {
	settings := config.DefaultSettings()
	settings.Curves = map[string][]config.BandSpec{
		"no_such_curve": {{UpTo: 10, Penalty: 5, Severity: "minor"}},
	}
	if _, err := NewEngine(config.DefaultProfile("/u"), settings); err == nil {
		t.Error("unknown curve name accepted")
	}

	settings.Curves = map[string][]config.BandSpec{
		"dns": {{UpTo: 10, Penalty: 5, Severity: "blistering"}},
	}
	if _, err := NewEngine(config.DefaultProfile("/u"), settings); err == nil {
		t.Error("unknown severity accepted")
	}
}

func TestNewEngineAppliesWALThreshold(t *testing.T) {
	settings := config.DefaultSettings()
	settings.WALRatio = 0.5
	e, err := NewEngine(config.DefaultProfile("/u"), settings)
	if err != nil {
		t.Fatal(err)
	}

	s := e.Evaluate([]probe.Finding{{
		Kind: probe.KindDBWALRatio, Category: probe.Database,
		Metric: "Defaults/history", Value: 40, Unit: probe.Percent,
	}})
	if len(s.Issues) != 0 {
		t.Errorf("40%% WAL under a 50%% threshold still flagged: %+v", s.Issues)
	}
}

func TestNewEngineAppliesCurveOverride(t *testing.T) {
	settings := config.DefaultSettings()
	settings.Curves = map[string][]config.BandSpec{
		"dns": {
			{UpTo: 20, Penalty: 0, Severity: "info", Label: "fast"},
			{Penalty: 10, Severity: "moderate", Label: "slow for this network"},
		},
	}
	e, err := NewEngine(config.DefaultProfile("/u"), settings)
	if err != nil {
		t.Fatal(err)
	}

	s := e.Evaluate([]probe.Finding{{
		Kind: probe.KindDNSLatency, Category: probe.Network,
		Metric: "google.com", Value: 50, Unit: probe.Milliseconds,
	}})
	if s.Value != 90 {
		t.Errorf("score = %d, want 90 under the stricter override", s.Value)
	}
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		value int
		want  Band
	}{
		{100, BandExcellent}, {90, BandExcellent},
		{89, BandGood}, {75, BandGood},
		{74, BandFair}, {50, BandFair},
		{49, BandPoor}, {25, BandPoor},
		{24, BandCritical}, {0, BandCritical},
	}
	for _, tt := range tests {
		if got := BandFor(tt.value); got != tt.want {
			t.Errorf("BandFor(%d) = %s, want %s", tt.value, got, tt.want)
		}
	}
}
