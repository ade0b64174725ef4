package cleanup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/blackwell-systems/browsermend/internal/browser"
	"github.com/blackwell-systems/browsermend/internal/config"
)

// Checker validates the structure of critical files after cleanup.
// *browser.Telemetry satisfies it.
type Checker interface {
	CheckPlist(path string) error
	CheckDatabase(ctx context.Context, path string) (browser.DBStatus, error)
}

// Verifier checks that the profile's critical files survived a cleanup.
type Verifier struct {
	profile *config.Profile
	checker Checker
}

// NewVerifier returns a verifier over the profile's critical-file list.
func NewVerifier(profile *config.Profile, checker Checker) *Verifier {
	return &Verifier{profile: profile, checker: checker}
}

// PreExisting returns the critical files present right now, as absolute
// paths. Captured before any mutation; Verify only holds the run to
// account for what was there to begin with.
func (v *Verifier) PreExisting() []string {
	var out []string
	for _, rel := range v.profile.CriticalFiles {
		path := v.profile.Path(rel)
		if _, err := os.Lstat(path); err == nil {
			out = append(out, path)
		}
	}
	return out
}

// Verify checks each pre-existing critical file: it must still exist, be
// non-empty, and parse (plists must decode, databases must pass
// quick_check). Returns a single error naming every damaged file, or nil
// when the profile came through intact.
func (v *Verifier) Verify(ctx context.Context, preExisting []string) error {
	var problems []string
	for _, path := range preExisting {
		if p := v.check(ctx, path); p != "" {
			problems = append(problems, fmt.Sprintf("%s: %s", path, p))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(problems, "; "))
}

func (v *Verifier) check(ctx context.Context, path string) string {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "missing after cleanup"
		}
		return err.Error()
	}
	if info.IsDir() {
		return ""
	}
	if info.Size() == 0 {
		return "empty after cleanup"
	}

	if strings.HasSuffix(strings.ToLower(path), ".plist") {
		if err := v.checker.CheckPlist(path); err != nil {
			return "no longer parses as a property list"
		}
		return ""
	}

	status, err := v.checker.CheckDatabase(ctx, path)
	if err != nil {
		return err.Error()
	}
	// A database locked by another process cannot be checked; lack of
	// proof is not damage.
	if !status.Locked && !status.QuickCheckOK {
		return "database fails its integrity check"
	}
	return ""
}
