// Package config defines the browser profile model and tunable settings for
// browsermend. Everything browser-specific (cache directory names, database
// files, critical files, process names, preference keys) lives here as
// data, never as logic in the diagnosis or cleanup engines.
package config

import "path/filepath"

// CacheTarget is one cache location inside the profile.
type CacheTarget struct {
	// Rel is the profile-relative path of the cache.
	Rel string

	// Impact selects the penalty curve for this cache. Empty means the
	// generic cache curve.
	Impact string

	// CleanSafe marks caches that may be deleted outright when oversized.
	// Storage-like directories (IndexedDB, Local Storage) are sized and
	// scored but never deleted by the planner.
	CleanSafe bool
}

// DatabaseTarget is one SQLite database inside the profile whose structural
// health is checked and whose WAL/SHM sidecars may be stripped.
type DatabaseTarget struct {
	Rel         string
	Description string

	// Expendable marks databases the browser rebuilds on its own, which
	// the emergency plan may delete outright.
	Expendable bool
}

// PrefSetting is one preference key with its performance-optimal value.
// A profile whose current value differs is flagged, and the planner may
// suggest setting it back.
type PrefSetting struct {
	Key   string
	Value any
	Issue string
}

// Profile describes one browser installation: where its data lives, which
// processes belong to it, and which files must never be touched.
type Profile struct {
	// Name is the display name, also used as the backup directory prefix.
	Name string

	// ProcessFilter matches browser process names (case-insensitive substring).
	ProcessFilter string

	// Root is the absolute profile directory all relative paths resolve against.
	Root string

	// HomeDir is the user home, for locations outside the profile
	// (crash reports, sibling browsers, backup destination).
	HomeDir string

	Caches       []CacheTarget
	Databases    []DatabaseTarget
	HistoryFiles []string

	// ExtensionsDir holds one subdirectory per installed extension.
	ExtensionsDir string

	// PreferencesFile is the profile's preference plist.
	PreferencesFile string

	// SessionFiles are session-state plists the emergency plan removes.
	SessionFiles []string

	// LockFiles indicate improper shutdown or profile corruption.
	LockFiles []string

	// CriticalFiles must survive every cleanup; the verifier checks each
	// one that existed before the run still exists and parses afterwards.
	CriticalFiles []string

	// Denylist holds case-insensitive base-name patterns the planner will
	// never generate a destructive action for, regardless of input.
	Denylist []string

	// VersionBackupGlob matches the browser's own versioned profile
	// backups; all but VersionBackupKeep newest are emergency targets.
	VersionBackupGlob string
	VersionBackupKeep int

	// CrashReportDir and CrashReportGlobs locate recent crash/hang logs.
	CrashReportDir   string
	CrashReportGlobs []string

	// CompareRoot is a sibling browser's data directory used by the
	// advanced cross-browser comparison, empty to disable.
	CompareRoot    string
	CompareName    string
	CompareHistory string

	// DNSDomains are probed for resolution latency. The first is the basic
	// probe; the full list feeds the advanced consistency check.
	DNSDomains []string

	// OptimalPrefs are preference keys checked against performance-optimal
	// values during advanced diagnostics.
	OptimalPrefs []PrefSetting

	// ProblemExtensions maps known-heavy extension name fragments to the
	// reason they degrade performance.
	ProblemExtensions map[string]string
}

// Path resolves a profile-relative path against the profile root.
func (p *Profile) Path(rel string) string {
	return filepath.Join(p.Root, rel)
}

// DefaultProfile returns the built-in Orion browser profile rooted in the
// given home directory. The tables mirror Orion's on-disk layout: the main
// application-support directory plus the Defaults subtree where the history
// and icon databases live.
func DefaultProfile(home string) *Profile {
	root := filepath.Join(home, "Library", "Application Support", "Orion")
	return &Profile{
		Name:          "Orion",
		ProcessFilter: "orion",
		Root:          root,
		HomeDir:       home,

		Caches: []CacheTarget{
			{Rel: "Cache", Impact: "Cache", CleanSafe: true},
			{Rel: "CachedData", CleanSafe: true},
			{Rel: "WebKitCache", Impact: "WebKitCache", CleanSafe: true},
			{Rel: "GPUCache", Impact: "GPUCache", CleanSafe: true},
			{Rel: "DawnCache", Impact: "GPUCache", CleanSafe: true},
			{Rel: "Code Cache", Impact: "Code Cache", CleanSafe: true},
			{Rel: "blob_storage", Impact: "blob_storage", CleanSafe: true},
			{Rel: "Service Worker", Impact: "Service Worker"},
			{Rel: "Service Worker/CacheStorage", CleanSafe: true},
			{Rel: "IndexedDB", Impact: "IndexedDB"},
			{Rel: "Local Storage", Impact: "Local Storage"},
			{Rel: "Session Storage"},
			{Rel: "QuotaManager", CleanSafe: true},
			{Rel: "Network Persistent State", CleanSafe: true},
			{Rel: "TransportSecurity", CleanSafe: true},
			{Rel: "WebKitNetworking", Impact: "WebKitCache"},
			{Rel: "Defaults/Favicon Cache", CleanSafe: true},
			{Rel: "Defaults/Thumbnail Cache", CleanSafe: true},
			{Rel: "Defaults/Touch Icon Cache", CleanSafe: true},
			{Rel: "Defaults/SVG Cache", CleanSafe: true},
			{Rel: "Defaults/ReadingListArchives", CleanSafe: true},
		},

		Databases: []DatabaseTarget{
			{Rel: "Defaults/history", Description: "browsing history", Expendable: true},
			{Rel: "Defaults/website_icons", Description: "website icons", Expendable: true},
			{Rel: "databases/Databases.db", Description: "web databases index"},
		},

		HistoryFiles: []string{
			"Defaults/history",
			"Defaults/history-wal",
			"Defaults/history-shm",
			"History.plist",
		},

		ExtensionsDir:   "Extensions",
		PreferencesFile: "preferences.plist",

		SessionFiles: []string{
			"Defaults/browser_session_state.plist",
			"Defaults/browser_state.plist",
			"Defaults/saved_pending_state.plist",
		},

		LockFiles: []string{
			"SingletonLock",
			".SingletonLock",
			"lockfile",
			"LOCK",
			".lock",
			"profile.lock",
		},

		CriticalFiles: []string{
			"Defaults/favourites.plist",
			"Defaults/reading_list.plist",
			"Defaults/website_settings.plist",
			"Passwords.plist",
			"Login Data",
			"preferences.plist",
			"Extensions",
		},

		Denylist: []string{
			"bookmarks*",
			"favourites*",
			"favorites*",
			"passwords*",
			"keychain*",
			"*.keychain",
			"login data*",
			"reading_list*",
			"website_settings*",
		},

		VersionBackupGlob: "Defaults/bk_*",
		VersionBackupKeep: 3,

		CrashReportDir: filepath.Join(home, "Library", "Logs", "DiagnosticReports"),
		CrashReportGlobs: []string{
			"*Orion*crash*",
			"*Orion*hang*",
			"*Orion*.ips",
		},

		CompareRoot:    filepath.Join(home, "Library", "Safari"),
		CompareName:    "Safari",
		CompareHistory: "History.db",

		DNSDomains: []string{"google.com", "apple.com", "cloudflare.com", "kagi.com"},

		OptimalPrefs: []PrefSetting{
			{Key: "WebKitDNSPrefetchingEnabled", Value: false, Issue: "DNS prefetching adds background network requests"},
			{Key: "WebKitAcceleratedCompositingEnabled", Value: true, Issue: "hardware acceleration disabled, rendering falls back to CPU"},
			{Key: "WebKitJavaScriptJITEnabled", Value: true, Issue: "JavaScript JIT disabled, scripts run interpreted"},
			{Key: "WebKitMemoryPressureHandlerEnabled", Value: true, Issue: "memory pressure handling disabled"},
			{Key: "WebKitPageCacheEnabled", Value: true, Issue: "page cache disabled, back/forward navigation reloads"},
			{Key: "WebKitApplicationCacheEnabled", Value: true, Issue: "application cache disabled, web apps load slower"},
			{Key: "WebKitResourceLoadStatisticsEnabled", Value: false, Issue: "resource load statistics add per-request overhead"},
			{Key: "WebKitDeveloperExtrasEnabled", Value: false, Issue: "developer tools always enabled"},
			{Key: "WebKitPagePreviewsEnabled", Value: false, Issue: "page preview thumbnails cost memory and CPU"},
			{Key: "WebKitHistoryItemLimit", Value: uint64(1000), Issue: "unbounded history slows searches"},
		},

		ProblemExtensions: map[string]string{
			"adblocker": "ad blockers can slow page loading significantly",
			"grammarly": "can cause typing lag",
			"honey":     "causes delays on shopping sites",
			"lastpass":  "password managers can slow form filling",
			"1password": "password managers can slow form filling",
			"pinterest": "save button slows image-heavy sites",
			"pocket":    "save-to-Pocket delays page loading",
			"evernote":  "web clipper impacts page performance",
		},
	}
}
