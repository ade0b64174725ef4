package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WriteActivity watches the profile root (and its immediate subdirectories)
// for the given window and returns the number of mutation events observed.
// A browser that the process table reports as stopped can still have helper
// processes flushing state; any write activity here means the profile is in
// use and database actions must not run.
func (t *Telemetry) WriteActivity(root string, window time.Duration) (int, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return 0, fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(root); err != nil {
		return 0, fmt.Errorf("watch %s: %w", root, err)
	}

	// fsnotify is not recursive; cover the first level where the hot
	// databases and caches live. Unwatchable subdirs are skipped.
	if entries, err := os.ReadDir(root); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				_ = watcher.Add(filepath.Join(root, e.Name()))
			}
		}
	}

	deadline := time.NewTimer(window)
	defer deadline.Stop()

	count := 0
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return count, nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				count++
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return count, nil
			}
			return count, fmt.Errorf("watch %s: %w", root, err)
		case <-deadline.C:
			return count, nil
		}
	}
}
