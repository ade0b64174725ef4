package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRescueCommandFlags(t *testing.T) {
	for _, name := range []string{"kill", "yes", "dry-run"} {
		if rescueCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag to be registered", name)
		}
	}
}

// A dry-run rescue against a populated profile must list the rebuildable
// targets without touching any of them.
func TestRunRescueDryRun(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, "profile")

	cacheFile := filepath.Join(root, "Cache", "blob")
	lock := filepath.Join(root, "SingletonLock")
	session := filepath.Join(root, "Defaults", "browser_session_state.plist")
	for _, path := range []string{cacheFile, lock, session} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", path, err)
		}
		if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}

	origProfileRoot, origBackupDir, origDryRun := profileRoot, backupDir, rescueFlagDryRun
	profileRoot, backupDir, rescueFlagDryRun = root, filepath.Join(tmp, "backups"), true
	defer func() {
		profileRoot, backupDir, rescueFlagDryRun = origProfileRoot, origBackupDir, origDryRun
	}()

	rescueCmd.SetContext(context.Background())

	var err error
	out := captureOutput(t, func() {
		err = runRescue(rescueCmd, nil)
	})
	if err != nil {
		t.Fatalf("runRescue() error: %v", err)
	}

	for _, want := range []string{"Cache", "SingletonLock", "browser_session_state.plist", "Dry-run mode"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	for _, path := range []string{cacheFile, lock, session} {
		if _, statErr := os.Stat(path); statErr != nil {
			t.Errorf("dry run must not touch %s: %v", path, statErr)
		}
	}
}
