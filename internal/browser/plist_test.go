package browser

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

const xmlPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>WebKitDNSPrefetchingEnabled</key>
	<true/>
	<key>HomePage</key>
	<string>https://kagi.com</string>
</dict>
</plist>
`

func TestReadPreferences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.plist")
	if err := os.WriteFile(path, []byte(xmlPlist), 0o644); err != nil {
		t.Fatal(err)
	}

	tel := New()
	prefs, err := tel.ReadPreferences(path)
	if err != nil {
		t.Fatalf("ReadPreferences() error = %v", err)
	}
	if v, ok := prefs["WebKitDNSPrefetchingEnabled"].(bool); !ok || !v {
		t.Errorf("WebKitDNSPrefetchingEnabled = %v, want true", prefs["WebKitDNSPrefetchingEnabled"])
	}
	if v, _ := prefs["HomePage"].(string); v != "https://kagi.com" {
		t.Errorf("HomePage = %v", prefs["HomePage"])
	}
}

func TestReadPreferencesMissing(t *testing.T) {
	prefs, err := New().ReadPreferences(filepath.Join(t.TempDir(), "gone.plist"))
	if err != nil {
		t.Fatalf("ReadPreferences() on missing file should not error, got %v", err)
	}
	if len(prefs) != 0 {
		t.Errorf("ReadPreferences() on missing file = %v, want empty", prefs)
	}
}

func TestReadPreference(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.plist")
	if err := os.WriteFile(path, []byte(xmlPlist), 0o644); err != nil {
		t.Fatal(err)
	}

	v, ok, err := New().ReadPreference(path, "HomePage")
	if err != nil || !ok {
		t.Fatalf("ReadPreference() = (%v, %v, %v)", v, ok, err)
	}
	if _, ok, _ := New().ReadPreference(path, "NoSuchKey"); ok {
		t.Error("ReadPreference() reported a missing key as set")
	}
}

func TestWritePreferencesPreservesFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.plist")
	if err := os.WriteFile(path, []byte(xmlPlist), 0o644); err != nil {
		t.Fatal(err)
	}

	tel := New()
	prefs, err := tel.ReadPreferences(path)
	if err != nil {
		t.Fatal(err)
	}
	prefs["WebKitDNSPrefetchingEnabled"] = false
	if err := tel.WritePreferences(path, prefs); err != nil {
		t.Fatalf("WritePreferences() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("<?xml")) {
		t.Error("XML plist was rewritten in a different format")
	}

	got, _, err := tel.ReadPreference(path, "WebKitDNSPrefetchingEnabled")
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := got.(bool); !ok || v {
		t.Errorf("WebKitDNSPrefetchingEnabled after write = %v, want false", got)
	}
}

func TestWritePreferencesNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.plist")
	tel := New()
	if err := tel.WritePreferences(path, map[string]any{"Key": "value"}); err != nil {
		t.Fatalf("WritePreferences() error = %v", err)
	}

	// New files come out binary, the browser's native format.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("bplist")) {
		t.Error("new plist not written in binary format")
	}
}

func TestCheckPlist(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.plist")
	if err := os.WriteFile(good, []byte(xmlPlist), 0o644); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "bad.plist")
	if err := os.WriteFile(bad, []byte("not a plist"), 0o644); err != nil {
		t.Fatal(err)
	}

	tel := New()
	if err := tel.CheckPlist(good); err != nil {
		t.Errorf("CheckPlist() on valid file = %v", err)
	}
	if err := tel.CheckPlist(bad); err == nil {
		t.Error("CheckPlist() on garbage should error")
	}
	if err := tel.CheckPlist(filepath.Join(dir, "gone.plist")); err == nil {
		t.Error("CheckPlist() on missing file should error")
	}
}
