package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// filesDir is the subdirectory of a backup root holding the copies, laid
// out by their path relative to the profile root.
const filesDir = "files"

// Backup is one created backup: its directory and the manifest describing it.
type Backup struct {
	Root     string
	Manifest *Manifest
}

// Create copies every target into a fresh timestamped directory under base
// and writes the manifest. Targets that do not exist are skipped; targets
// outside profileRoot are rejected. Any copy failure removes the partial
// backup and returns an error, so a backup either exists complete with its
// manifest or not at all.
func Create(base, prefix, profileRoot string, targets []string) (*Backup, error) {
	root, err := makeRoot(base, prefix, time.Now())
	if err != nil {
		return nil, err
	}

	m := &Manifest{CreatedAt: time.Now(), ProfileRoot: profileRoot}
	for _, target := range dedupe(targets) {
		if err := backUp(root, profileRoot, target, m); err != nil {
			os.RemoveAll(root)
			return nil, fmt.Errorf("backing up %s: %w", target, err)
		}
	}
	if err := m.write(root); err != nil {
		os.RemoveAll(root)
		return nil, err
	}
	return &Backup{Root: root, Manifest: m}, nil
}

// makeRoot creates <base>/<prefix>_Backup_<timestamp>, suffixing _2, _3 and
// so on when a run lands on an existing name.
func makeRoot(base, prefix string, now time.Time) (string, error) {
	if err := os.MkdirAll(base, 0755); err != nil {
		return "", fmt.Errorf("create backup base %s: %w", base, err)
	}
	stamp := now.Format("20060102_150405")
	name := fmt.Sprintf("%s_Backup_%s", prefix, stamp)
	for attempt := 1; ; attempt++ {
		candidate := filepath.Join(base, name)
		if attempt > 1 {
			candidate = fmt.Sprintf("%s_%d", candidate, attempt)
		}
		err := os.Mkdir(candidate, 0755)
		if err == nil {
			return candidate, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("create backup dir: %w", err)
		}
		if attempt > 100 {
			return "", fmt.Errorf("no free backup directory name under %s", base)
		}
	}
}

func backUp(root, profileRoot, target string, m *Manifest) error {
	info, err := os.Lstat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if !within(profileRoot, target) {
		return fmt.Errorf("target outside profile root %s", profileRoot)
	}
	rel, err := filepath.Rel(profileRoot, target)
	if err != nil {
		return err
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return backUpSymlink(target, rel, info, m)
	case info.IsDir():
		return backUpTree(root, profileRoot, target, m)
	case info.Mode().IsRegular():
		return backUpFile(root, target, rel, m)
	default:
		// Sockets and pipes carry no recoverable content.
		return nil
	}
}

func backUpTree(root, profileRoot, dir string, m *Manifest) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(profileRoot, path)
		if relErr != nil {
			return relErr
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		switch {
		case d.Type()&os.ModeSymlink != 0:
			return backUpSymlink(path, rel, info, m)
		case d.Type().IsRegular():
			return backUpFile(root, path, rel, m)
		default:
			return nil
		}
	})
}

func backUpFile(root, src, rel string, m *Manifest) error {
	dst := filepath.Join(root, filesDir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	size, sum, err := copyHashed(src, dst)
	if err != nil {
		return err
	}
	m.Entries = append(m.Entries, Entry{
		OriginalPath: src,
		BackupPath:   dst,
		SizeBytes:    size,
		SHA256:       sum,
	})
	return nil
}

func backUpSymlink(src, rel string, info os.FileInfo, m *Manifest) error {
	link, err := os.Readlink(src)
	if err != nil {
		return err
	}
	m.Entries = append(m.Entries, Entry{
		OriginalPath: src,
		Link:         link,
		SizeBytes:    info.Size(),
	})
	return nil
}

// copyHashed copies src to dst, returning the byte count and SHA-256 of the
// content. The destination is fsynced before returning.
func copyHashed(src, dst string) (int64, string, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, "", err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return 0, "", err
	}

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(out, hash), in)
	if err != nil {
		out.Close()
		return 0, "", err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return 0, "", err
	}
	if err := out.Close(); err != nil {
		return 0, "", err
	}
	return size, hex.EncodeToString(hash.Sum(nil)), nil
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
