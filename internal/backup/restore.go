package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Restore copies every manifest entry back to its original location,
// verifying each backup copy against its recorded checksum first. It
// restores as much as it can: one unreadable entry does not stop the rest,
// and all failures come back joined. Returns the number of entries restored.
func Restore(m *Manifest) (int, error) {
	restored := 0
	var errs []error
	for _, e := range m.Entries {
		if err := restoreEntry(e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.OriginalPath, err))
			continue
		}
		restored++
	}
	return restored, errors.Join(errs...)
}

func restoreEntry(e Entry) error {
	if err := os.MkdirAll(filepath.Dir(e.OriginalPath), 0755); err != nil {
		return err
	}

	if e.Link != "" {
		if err := os.Remove(e.OriginalPath); err != nil && !os.IsNotExist(err) {
			return err
		}
		return os.Symlink(e.Link, e.OriginalPath)
	}

	if e.SHA256 != "" {
		sum, err := hashFile(e.BackupPath)
		if err != nil {
			return fmt.Errorf("verify backup copy: %w", err)
		}
		if sum != e.SHA256 {
			return fmt.Errorf("backup copy checksum mismatch, refusing to restore from it")
		}
	}

	in, err := os.Open(e.BackupPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(e.OriginalPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// Info summarizes one backup found on disk.
type Info struct {
	Root     string
	Manifest *Manifest
}

// List returns the backups under base whose directory name carries the
// given prefix, newest first. Directories without a readable manifest are
// skipped; a half-written backup is not offered for restore.
func List(base, prefix string) ([]Info, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup base %s: %w", base, err)
	}

	marker := prefix + "_Backup_"
	var out []Info
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), marker) {
			continue
		}
		root := filepath.Join(base, entry.Name())
		m, err := Load(root)
		if err != nil {
			continue
		}
		out = append(out, Info{Root: root, Manifest: m})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Manifest.CreatedAt.After(out[j].Manifest.CreatedAt)
	})
	return out, nil
}

// Latest returns the newest backup under base, or nil when none exist.
func Latest(base, prefix string) (*Info, error) {
	list, err := List(base, prefix)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}
