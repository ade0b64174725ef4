package browser

import (
	"fmt"
	"os"

	"howett.net/plist"
)

// ReadPreferences decodes the property-list file at path into a key/value
// map. A missing file yields an empty map so callers can treat "no
// preferences yet" and "default preferences" identically.
func (t *Telemetry) ReadPreferences(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read preferences %s: %w", path, err)
	}

	prefs := map[string]any{}
	if _, err := plist.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("decode preferences %s: %w", path, err)
	}
	return prefs, nil
}

// ReadPreference returns a single preference value and whether it was set.
func (t *Telemetry) ReadPreference(path, key string) (any, bool, error) {
	prefs, err := t.ReadPreferences(path)
	if err != nil {
		return nil, false, err
	}
	v, ok := prefs[key]
	return v, ok, nil
}

// WritePreferences encodes prefs back to path, preserving the existing
// file's plist format. New files are written in binary format, matching
// what the browser itself produces.
func (t *Telemetry) WritePreferences(path string, prefs map[string]any) error {
	format := plist.BinaryFormat
	if data, err := os.ReadFile(path); err == nil {
		var existing map[string]any
		if f, err := plist.Unmarshal(data, &existing); err == nil {
			format = f
		}
	}

	data, err := plist.Marshal(prefs, format)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write preferences %s: %w", path, err)
	}
	return nil
}

// CheckPlist reports whether the file at path parses as a property list.
// Used by the post-cleanup verifier on critical plist files.
func (t *Telemetry) CheckPlist(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read plist %s: %w", path, err)
	}
	var v any
	if _, err := plist.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("parse plist %s: %w", path, err)
	}
	return nil
}
