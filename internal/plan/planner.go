package plan

import (
	"fmt"
	"sort"

	"github.com/blackwell-systems/browsermend/internal/browser"
	"github.com/blackwell-systems/browsermend/internal/config"
	"github.com/blackwell-systems/browsermend/internal/score"
)

// Lister is the filesystem view the planner needs to expand glob-based
// suggestions into concrete targets.
type Lister interface {
	GlobInfo(pattern string) ([]browser.PathInfo, error)
	Exists(path string) (bool, int64)
}

// Planner builds cleanup plans for one profile.
type Planner struct {
	profile *config.Profile
	lister  Lister
}

// New returns a planner over the given profile.
func New(profile *config.Profile, lister Lister) *Planner {
	return &Planner{profile: profile, lister: lister}
}

// FromIssues builds the standard cleanup plan from the suggested actions the
// scoring engine attached to issues. Advice-only issues contribute nothing.
// Duplicate targets collapse to one action, and any target matching the
// credential/bookmark denylist is dropped outright.
func (p *Planner) FromIssues(issues []score.Issue) *Plan {
	b := p.newBuilder()
	for _, issue := range issues {
		ref := issue.SuggestedAction
		if ref == nil {
			continue
		}
		switch ref.Op {
		case score.OpDeletePath:
			b.add(Action{
				Kind:          DeletePath,
				Path:          ref.Path,
				ExpectedBytes: ref.Bytes,
				Reason:        issue.Description,
			})
		case score.OpStripSidecars:
			b.add(Action{
				Kind:   StripDatabaseSidecars,
				Path:   ref.Path,
				Reason: issue.Description,
			})
		case score.OpSetPreference:
			b.add(Action{
				Kind:      SetPreference,
				Path:      ref.Path,
				PrefKey:   ref.Key,
				PrefValue: ref.Value,
				Reason:    issue.Description,
			})
		case score.OpPruneBackups:
			p.addStaleBackups(b)
		case score.OpClearLocks:
			p.addLockFiles(b)
		}
	}
	return b.finish()
}

// Maximal builds the emergency rescue plan: everything expendable goes.
// Browsing history and its sidecars, rebuildable databases, every
// clean-safe cache, session state, stale version backups, and lock files.
// The denylist still holds: bookmarks, credentials and reading list
// survive even here.
func (p *Planner) Maximal() *Plan {
	b := p.newBuilder()

	for _, rel := range p.profile.HistoryFiles {
		p.addIfPresent(b, p.profile.Path(rel), "emergency reset: browsing history")
	}
	for _, db := range p.profile.Databases {
		if !db.Expendable {
			continue
		}
		reason := fmt.Sprintf("emergency reset: %s database", db.Description)
		base := p.profile.Path(db.Rel)
		for _, path := range []string{base, base + "-wal", base + "-shm"} {
			p.addIfPresent(b, path, reason)
		}
	}
	for _, cache := range p.profile.Caches {
		if !cache.CleanSafe {
			continue
		}
		p.addIfPresent(b, p.profile.Path(cache.Rel), "emergency reset: cache")
	}
	for _, rel := range p.profile.SessionFiles {
		p.addIfPresent(b, p.profile.Path(rel), "emergency reset: saved session state")
	}
	p.addStaleBackups(b)
	p.addLockFiles(b)

	return b.finish()
}

func (p *Planner) addIfPresent(b *builder, path, reason string) {
	ok, size := p.lister.Exists(path)
	if !ok {
		return
	}
	b.add(Action{Kind: DeletePath, Path: path, ExpectedBytes: size, Reason: reason})
}

// addStaleBackups expands the browser's own versioned profile backups into
// deletions, keeping the newest few.
func (p *Planner) addStaleBackups(b *builder) {
	matches, err := p.lister.GlobInfo(p.profile.Path(p.profile.VersionBackupGlob))
	if err != nil || len(matches) <= p.profile.VersionBackupKeep {
		return
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].ModTime.After(matches[j].ModTime)
	})
	for _, m := range matches[p.profile.VersionBackupKeep:] {
		b.add(Action{
			Kind:          DeletePath,
			Path:          m.Path,
			ExpectedBytes: m.SizeBytes,
			Reason:        "stale versioned profile backup",
		})
	}
}

func (p *Planner) addLockFiles(b *builder) {
	for _, rel := range p.profile.LockFiles {
		path := p.profile.Path(rel)
		if ok, size := p.lister.Exists(path); ok {
			b.add(Action{
				Kind:          DeletePath,
				Path:          path,
				ExpectedBytes: size,
				Reason:        "stale lock file from improper shutdown",
			})
		}
	}
}

// builder accumulates actions, deduplicating targets and enforcing the
// denylist at the data level so no caller can produce a plan that touches
// a protected file.
type builder struct {
	deny    []string
	seen    map[string]bool
	actions []Action
}

func (p *Planner) newBuilder() *builder {
	return &builder{deny: p.profile.Denylist, seen: make(map[string]bool)}
}

func (b *builder) add(a Action) {
	if a.Path == "" || Denied(a.Path, b.deny) {
		return
	}
	key := fmt.Sprintf("%d|%s|%s", a.Kind, a.Path, a.PrefKey)
	if b.seen[key] {
		return
	}
	b.seen[key] = true
	b.actions = append(b.actions, a)
}

// finish orders the plan: sidecar strips, then deletions largest reclaim
// first, then preference writes.
func (b *builder) finish() *Plan {
	rank := func(k ActionKind) int {
		switch k {
		case StripDatabaseSidecars:
			return 0
		case DeletePath:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(b.actions, func(i, j int) bool {
		ai, aj := b.actions[i], b.actions[j]
		if rank(ai.Kind) != rank(aj.Kind) {
			return rank(ai.Kind) < rank(aj.Kind)
		}
		switch ai.Kind {
		case DeletePath:
			if ai.ExpectedBytes != aj.ExpectedBytes {
				return ai.ExpectedBytes > aj.ExpectedBytes
			}
			return ai.Path < aj.Path
		case SetPreference:
			return ai.PrefKey < aj.PrefKey
		default:
			return ai.Path < aj.Path
		}
	})
	return &Plan{Actions: b.actions}
}
