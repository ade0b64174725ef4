// Package backup copies cleanup targets aside before any mutation and
// restores them byte-for-byte afterwards if verification fails. Every
// backup is a plain directory with a manifest.json describing each file;
// backups are never deleted by the tool, only created and read.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ManifestName is the manifest file written at the backup root.
const ManifestName = "manifest.json"

// Entry records one backed-up file or symlink.
type Entry struct {
	// OriginalPath is where the file lived before cleanup.
	OriginalPath string `json:"original_path"`

	// BackupPath is the copy inside the backup directory. Empty for
	// symlink entries.
	BackupPath string `json:"backup_path,omitempty"`

	// Link is the symlink target for symlink entries.
	Link string `json:"link,omitempty"`

	SizeBytes int64  `json:"size_bytes"`
	SHA256    string `json:"sha256,omitempty"`
}

// Manifest describes one complete backup.
type Manifest struct {
	CreatedAt   time.Time `json:"created_at"`
	ProfileRoot string    `json:"profile_root"`
	Entries     []Entry   `json:"entries"`
}

// Covers reports whether the manifest contains an entry for path or for
// anything beneath it. A deletion target is only safe to execute when this
// holds, or when the target no longer exists.
func (m *Manifest) Covers(path string) bool {
	for _, e := range m.Entries {
		if e.OriginalPath == path || within(path, e.OriginalPath) {
			return true
		}
	}
	return false
}

// within reports whether child lies beneath parent.
func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// TotalBytes sums the recorded sizes.
func (m *Manifest) TotalBytes() int64 {
	var total int64
	for _, e := range m.Entries {
		total += e.SizeBytes
	}
	return total
}

func (m *Manifest) write(root string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	path := filepath.Join(root, ManifestName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Load reads the manifest from a backup directory.
func Load(root string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(root, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("read manifest in %s: %w", root, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest in %s: %w", root, err)
	}
	return &m, nil
}
