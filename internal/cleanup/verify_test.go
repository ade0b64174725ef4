package cleanup

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackwell-systems/browsermend/internal/browser"
	"github.com/blackwell-systems/browsermend/internal/config"
)

func verifyProfile(root string) *config.Profile {
	return &config.Profile{
		Name:          "Orion",
		ProcessFilter: "browsermend-no-such-process",
		Root:          root,
		CriticalFiles: []string{"favourites.plist", "Login Data", "Extensions"},
	}
}

// writeHealthyDB creates a real SQLite database that passes quick_check.
// The driver is registered by the browser package import.
func writeHealthyDB(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec("CREATE TABLE logins (id INTEGER PRIMARY KEY, origin TEXT)"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("INSERT INTO logins (origin) VALUES ('https://example.com')"); err != nil {
		t.Fatal(err)
	}
}

func TestPreExistingListsOnlyPresent(t *testing.T) {
	root := t.TempDir()
	p := verifyProfile(root)
	tel := browser.New()

	if err := tel.WritePreferences(filepath.Join(root, "favourites.plist"), map[string]any{"ok": true}); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "Extensions"), 0755); err != nil {
		t.Fatal(err)
	}

	v := NewVerifier(p, tel)
	pre := v.PreExisting()
	if len(pre) != 2 {
		t.Fatalf("got %d pre-existing critical files, want 2: %v", len(pre), pre)
	}
	for _, path := range pre {
		if strings.Contains(path, "Login Data") {
			t.Errorf("absent critical file listed: %s", path)
		}
	}
}

func TestVerifyPassesIntactProfile(t *testing.T) {
	root := t.TempDir()
	p := verifyProfile(root)
	tel := browser.New()

	if err := tel.WritePreferences(filepath.Join(root, "favourites.plist"), map[string]any{"ok": true}); err != nil {
		t.Fatal(err)
	}
	writeHealthyDB(t, filepath.Join(root, "Login Data"))
	if err := os.MkdirAll(filepath.Join(root, "Extensions"), 0755); err != nil {
		t.Fatal(err)
	}

	v := NewVerifier(p, tel)
	pre := v.PreExisting()
	if len(pre) != 3 {
		t.Fatalf("got %d pre-existing critical files, want 3", len(pre))
	}
	if err := v.Verify(context.Background(), pre); err != nil {
		t.Errorf("Verify on intact profile = %v", err)
	}
}

func TestVerifyFlagsDamage(t *testing.T) {
	tel := browser.New()

	tests := []struct {
		name   string
		damage func(t *testing.T, fav string)
		want   string
	}{
		{
			name:   "deleted",
			damage: func(t *testing.T, fav string) { os.Remove(fav) },
			want:   "missing after cleanup",
		},
		{
			name: "truncated",
			damage: func(t *testing.T, fav string) {
				if err := os.WriteFile(fav, nil, 0644); err != nil {
					t.Fatal(err)
				}
			},
			want: "empty after cleanup",
		},
		{
			name: "corrupted",
			damage: func(t *testing.T, fav string) {
				if err := os.WriteFile(fav, []byte{0x00, 0x01, 0x02, 'b', 'a', 'd'}, 0644); err != nil {
					t.Fatal(err)
				}
			},
			want: "no longer parses",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			p := verifyProfile(root)
			fav := filepath.Join(root, "favourites.plist")
			if err := tel.WritePreferences(fav, map[string]any{"ok": true}); err != nil {
				t.Fatal(err)
			}

			v := NewVerifier(p, tel)
			pre := v.PreExisting()
			tt.damage(t, fav)

			err := v.Verify(context.Background(), pre)
			if err == nil {
				t.Fatal("Verify missed the damage")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
			if !strings.Contains(err.Error(), "favourites.plist") {
				t.Errorf("err = %v, want the damaged path named", err)
			}
		})
	}
}

func TestVerifyFlagsCorruptDatabase(t *testing.T) {
	root := t.TempDir()
	p := verifyProfile(root)
	tel := browser.New()

	logins := filepath.Join(root, "Login Data")
	writeFile(t, logins, strings.Repeat("garbage!", 200))

	v := NewVerifier(p, tel)
	err := v.Verify(context.Background(), []string{logins})
	if err == nil {
		t.Fatal("Verify accepted a corrupt database")
	}
	if !strings.Contains(err.Error(), "integrity check") {
		t.Errorf("err = %v, want integrity failure", err)
	}
}
