package cleanup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackwell-systems/browsermend/internal/backup"
	"github.com/blackwell-systems/browsermend/internal/browser"
	"github.com/blackwell-systems/browsermend/internal/plan"
)

func notRunning() bool { return false }
func stillRunning() bool { return true }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// backUpAll takes a real backup of the given targets so the executor's
// coverage checks run against an honest manifest.
func backUpAll(t *testing.T, profileRoot string, targets ...string) *backup.Manifest {
	t.Helper()
	b, err := backup.Create(t.TempDir(), "Orion", profileRoot, targets)
	if err != nil {
		t.Fatal(err)
	}
	return b.Manifest
}

func TestExecuteDeletesCoveredTargets(t *testing.T) {
	profile := t.TempDir()
	cache := filepath.Join(profile, "Cache")
	history := filepath.Join(profile, "Defaults", "history")
	writeFile(t, filepath.Join(cache, "a"), strings.Repeat("x", 100))
	writeFile(t, filepath.Join(cache, "sub", "b"), strings.Repeat("y", 50))
	writeFile(t, history, strings.Repeat("h", 10))

	m := backUpAll(t, profile, cache, history)
	e := NewExecutor(profile, m, notRunning, browser.New())

	p := &plan.Plan{Actions: []plan.Action{
		{Kind: plan.DeletePath, Path: cache},
		{Kind: plan.DeletePath, Path: history},
	}}
	results := e.Execute(p)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Outcome != Succeeded || results[0].BytesFreed != 150 {
		t.Errorf("cache result = %v freed %d, want done freed 150",
			results[0].Outcome, results[0].BytesFreed)
	}
	if results[1].Outcome != Succeeded || results[1].BytesFreed != 10 {
		t.Errorf("history result = %v freed %d, want done freed 10",
			results[1].Outcome, results[1].BytesFreed)
	}
	if _, err := os.Stat(cache); !os.IsNotExist(err) {
		t.Error("cache directory still present")
	}

	// A second pass over the now-clean tree mutates nothing.
	for i, r := range e.Execute(p) {
		if r.Outcome != Skipped || r.Reason != "already clean" {
			t.Errorf("second pass result %d = %v %q, want skipped already clean",
				i, r.Outcome, r.Reason)
		}
	}
}

func TestExecuteRefusesUncoveredTarget(t *testing.T) {
	profile := t.TempDir()
	cache := filepath.Join(profile, "Cache")
	writeFile(t, filepath.Join(cache, "a"), "data")

	e := NewExecutor(profile, &backup.Manifest{}, notRunning, browser.New())
	res := e.Execute(&plan.Plan{Actions: []plan.Action{
		{Kind: plan.DeletePath, Path: cache},
	}})[0]

	if res.Outcome != Failed {
		t.Fatalf("outcome = %v, want failed", res.Outcome)
	}
	if !strings.Contains(res.Reason, "covered") {
		t.Errorf("reason = %q, want coverage failure", res.Reason)
	}
	if _, err := os.Stat(filepath.Join(cache, "a")); err != nil {
		t.Error("uncovered target was deleted anyway")
	}
}

func TestExecuteRefusesLexicalEscape(t *testing.T) {
	parent := t.TempDir()
	profile := filepath.Join(parent, "profile")
	victim := filepath.Join(parent, "victim")
	writeFile(t, victim, "precious")
	if err := os.MkdirAll(profile, 0755); err != nil {
		t.Fatal(err)
	}

	e := NewExecutor(profile, &backup.Manifest{}, notRunning, browser.New())
	res := e.Execute(&plan.Plan{Actions: []plan.Action{
		{Kind: plan.DeletePath, Path: victim},
	}})[0]

	if res.Outcome != Failed {
		t.Fatalf("outcome = %v, want failed", res.Outcome)
	}
	if !strings.Contains(res.Reason, "profile root") {
		t.Errorf("reason = %q, want escape refusal", res.Reason)
	}
	if readFile(t, victim) != "precious" {
		t.Error("file outside the profile was touched")
	}
}

func TestExecuteRefusesSymlinkEscape(t *testing.T) {
	profile := t.TempDir()
	outside := t.TempDir()
	victim := filepath.Join(outside, "victim")
	writeFile(t, victim, "precious")
	if err := os.Symlink(outside, filepath.Join(profile, "redirect")); err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(profile, "redirect", "victim")
	e := NewExecutor(profile, &backup.Manifest{}, notRunning, browser.New())
	res := e.Execute(&plan.Plan{Actions: []plan.Action{
		{Kind: plan.DeletePath, Path: target},
	}})[0]

	if res.Outcome != Failed {
		t.Fatalf("outcome = %v, want failed", res.Outcome)
	}
	if !strings.Contains(res.Reason, "profile root") {
		t.Errorf("reason = %q, want escape refusal", res.Reason)
	}
	if readFile(t, victim) != "precious" {
		t.Error("symlinked path outside the profile was deleted")
	}
}

func TestStripSidecarsSkipsWhileRunning(t *testing.T) {
	profile := t.TempDir()
	db := filepath.Join(profile, "Defaults", "history")
	writeFile(t, db, "main")
	writeFile(t, db+"-wal", "wal")

	e := NewExecutor(profile, &backup.Manifest{}, stillRunning, browser.New())
	res := e.Execute(&plan.Plan{Actions: []plan.Action{
		{Kind: plan.StripDatabaseSidecars, Path: db},
	}})[0]

	if res.Outcome != Skipped {
		t.Fatalf("outcome = %v, want skipped", res.Outcome)
	}
	if !strings.Contains(res.Reason, "running") {
		t.Errorf("reason = %q, want running browser", res.Reason)
	}
	if _, err := os.Stat(db + "-wal"); err != nil {
		t.Error("sidecar removed while browser running")
	}
}

func TestStripSidecarsRemovesOnlySidecars(t *testing.T) {
	profile := t.TempDir()
	db := filepath.Join(profile, "Defaults", "history")
	writeFile(t, db, "main database")
	writeFile(t, db+"-wal", strings.Repeat("w", 30))
	writeFile(t, db+"-shm", strings.Repeat("s", 20))

	m := backUpAll(t, profile, db, db+"-wal", db+"-shm")
	e := NewExecutor(profile, m, notRunning, browser.New())
	p := &plan.Plan{Actions: []plan.Action{
		{Kind: plan.StripDatabaseSidecars, Path: db},
	}}

	res := e.Execute(p)[0]
	if res.Outcome != Succeeded {
		t.Fatalf("outcome = %v (%s), want done", res.Outcome, res.Reason)
	}
	if res.BytesFreed != 50 {
		t.Errorf("BytesFreed = %d, want 50", res.BytesFreed)
	}
	if _, err := os.Stat(db); err != nil {
		t.Error("main database removed by sidecar strip")
	}
	if _, err := os.Stat(db + "-wal"); !os.IsNotExist(err) {
		t.Error("wal sidecar still present")
	}
	if _, err := os.Stat(db + "-shm"); !os.IsNotExist(err) {
		t.Error("shm sidecar still present")
	}

	res = e.Execute(p)[0]
	if res.Outcome != Skipped || res.Reason != "already clean" {
		t.Errorf("second strip = %v %q, want skipped already clean", res.Outcome, res.Reason)
	}
}

func TestSetPreferenceWritesAndSkips(t *testing.T) {
	profile := t.TempDir()
	prefs := filepath.Join(profile, "preferences.plist")
	tel := browser.New()
	if err := tel.WritePreferences(prefs, map[string]any{"WebKitDNSPrefetchingEnabled": true}); err != nil {
		t.Fatal(err)
	}

	m := backUpAll(t, profile, prefs)
	e := NewExecutor(profile, m, notRunning, tel)
	p := &plan.Plan{Actions: []plan.Action{{
		Kind:      plan.SetPreference,
		Path:      prefs,
		PrefKey:   "WebKitDNSPrefetchingEnabled",
		PrefValue: false,
	}}}

	res := e.Execute(p)[0]
	if res.Outcome != Succeeded {
		t.Fatalf("outcome = %v (%s), want done", res.Outcome, res.Reason)
	}
	v, ok, err := tel.ReadPreference(prefs, "WebKitDNSPrefetchingEnabled")
	if err != nil || !ok {
		t.Fatalf("ReadPreference: %v ok=%v", err, ok)
	}
	if v != false {
		t.Errorf("preference = %v, want false", v)
	}

	res = e.Execute(p)[0]
	if res.Outcome != Skipped || res.Reason != "already set" {
		t.Errorf("second write = %v %q, want skipped already set", res.Outcome, res.Reason)
	}
}

func TestSetPreferenceCreatesMissingFile(t *testing.T) {
	profile := t.TempDir()
	prefs := filepath.Join(profile, "preferences.plist")
	tel := browser.New()

	e := NewExecutor(profile, &backup.Manifest{}, notRunning, tel)
	res := e.Execute(&plan.Plan{Actions: []plan.Action{{
		Kind:      plan.SetPreference,
		Path:      prefs,
		PrefKey:   "WebKitHistoryItemLimit",
		PrefValue: uint64(1000),
	}}})[0]

	if res.Outcome != Succeeded {
		t.Fatalf("outcome = %v (%s), want done", res.Outcome, res.Reason)
	}
	v, ok, err := tel.ReadPreference(prefs, "WebKitHistoryItemLimit")
	if err != nil || !ok {
		t.Fatalf("ReadPreference: %v ok=%v", err, ok)
	}
	if !sameValue(v, uint64(1000)) {
		t.Errorf("preference = %v, want 1000", v)
	}
}

func TestExecuteReportsProgress(t *testing.T) {
	profile := t.TempDir()
	cache := filepath.Join(profile, "Cache")
	writeFile(t, filepath.Join(cache, "x"), "1")
	m := backUpAll(t, profile, cache)
	e := NewExecutor(profile, m, notRunning, browser.New())

	var calls []int
	e.OnAction(func(done, total int, r ActionResult) {
		if total != 2 {
			t.Errorf("total = %d, want 2", total)
		}
		calls = append(calls, done)
	})
	e.Execute(&plan.Plan{Actions: []plan.Action{
		{Kind: plan.DeletePath, Path: cache},
		{Kind: plan.DeletePath, Path: filepath.Join(profile, "absent")},
	}})
	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Errorf("progress calls = %v, want [1 2]", calls)
	}
}

func TestSetPreferenceRefusesUncoveredExisting(t *testing.T) {
	profile := t.TempDir()
	prefs := filepath.Join(profile, "preferences.plist")
	tel := browser.New()
	if err := tel.WritePreferences(prefs, map[string]any{"WebKitPageCacheEnabled": false}); err != nil {
		t.Fatal(err)
	}

	e := NewExecutor(profile, &backup.Manifest{}, notRunning, tel)
	res := e.Execute(&plan.Plan{Actions: []plan.Action{{
		Kind:      plan.SetPreference,
		Path:      prefs,
		PrefKey:   "WebKitPageCacheEnabled",
		PrefValue: true,
	}}})[0]

	if res.Outcome != Failed {
		t.Fatalf("outcome = %v, want failed", res.Outcome)
	}
	v, _, err := tel.ReadPreference(prefs, "WebKitPageCacheEnabled")
	if err != nil {
		t.Fatal(err)
	}
	if v != false {
		t.Error("uncovered preference file was rewritten")
	}
}
