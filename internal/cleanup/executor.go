// Package cleanup executes approved plans under a strict safety contract:
// every mutated path stays inside the profile root, every mutation is
// covered by the backup manifest first, and a damaged critical file after
// the run triggers a full rollback. The pipeline never deletes without a
// backup and never asks questions itself; approval comes in as a function.
package cleanup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/blackwell-systems/browsermend/internal/backup"
	"github.com/blackwell-systems/browsermend/internal/plan"
)

// Outcome is what happened to one planned action.
type Outcome int

const (
	Succeeded Outcome = iota
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "done"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ActionResult records the outcome of one action. Reason is set for
// skipped and failed actions.
type ActionResult struct {
	Action     plan.Action
	Outcome    Outcome
	Reason     string
	BytesFreed int64
}

// RunningChecker reports whether the browser is currently running.
type RunningChecker func() bool

// PrefStore reads and writes the profile's preference plist.
type PrefStore interface {
	ReadPreferences(path string) (map[string]any, error)
	WritePreferences(path string, prefs map[string]any) error
}

var errEscape = errors.New("resolves outside the profile root")

// Executor applies plan actions one by one. A failed action is recorded
// and never stops the rest of the plan.
type Executor struct {
	profileRoot string
	manifest    *backup.Manifest
	running     RunningChecker
	prefs       PrefStore
	onAction    func(done, total int, r ActionResult)
}

// NewExecutor returns an executor bound to one profile root and the
// manifest of the backup taken for this run.
func NewExecutor(profileRoot string, m *backup.Manifest, running RunningChecker, prefs PrefStore) *Executor {
	return &Executor{profileRoot: profileRoot, manifest: m, running: running, prefs: prefs}
}

// OnAction registers a callback invoked after each action completes,
// with the count done so far and the plan total.
func (e *Executor) OnAction(fn func(done, total int, r ActionResult)) {
	e.onAction = fn
}

// Execute applies every action in plan order and returns one result per
// action.
func (e *Executor) Execute(p *plan.Plan) []ActionResult {
	results := make([]ActionResult, 0, len(p.Actions))
	for _, a := range p.Actions {
		results = append(results, e.apply(a))
		if e.onAction != nil {
			e.onAction(len(results), len(p.Actions), results[len(results)-1])
		}
	}
	return results
}

func (e *Executor) apply(a plan.Action) ActionResult {
	switch a.Kind {
	case plan.DeletePath:
		return e.deletePath(a)
	case plan.StripDatabaseSidecars:
		return e.stripSidecars(a)
	case plan.SetPreference:
		return e.setPreference(a)
	default:
		return ActionResult{Action: a, Outcome: Failed, Reason: "unknown action kind"}
	}
}

func (e *Executor) deletePath(a plan.Action) ActionResult {
	res := ActionResult{Action: a}

	missing, err := e.checkPath(a.Path)
	if err != nil {
		res.Outcome = Failed
		res.Reason = err.Error()
		return res
	}
	if missing {
		res.Outcome = Skipped
		res.Reason = "already clean"
		return res
	}
	if !e.manifest.Covers(a.Path) {
		res.Outcome = Failed
		res.Reason = "not covered by the backup"
		return res
	}

	size := pathSize(a.Path)
	if err := os.RemoveAll(a.Path); err != nil {
		res.Outcome = Failed
		res.Reason = err.Error()
		return res
	}
	res.Outcome = Succeeded
	res.BytesFreed = size
	return res
}

func (e *Executor) stripSidecars(a plan.Action) ActionResult {
	res := ActionResult{Action: a}

	if e.running() {
		res.Outcome = Skipped
		res.Reason = "target in use: browser is running"
		return res
	}

	removed := 0
	for _, sidecar := range []string{a.Path + "-wal", a.Path + "-shm"} {
		missing, err := e.checkPath(sidecar)
		if err != nil {
			res.Outcome = Failed
			res.Reason = fmt.Sprintf("%s: %v", filepath.Base(sidecar), err)
			return res
		}
		if missing {
			continue
		}
		if !e.manifest.Covers(sidecar) {
			res.Outcome = Failed
			res.Reason = fmt.Sprintf("%s not covered by the backup", filepath.Base(sidecar))
			return res
		}
		size := pathSize(sidecar)
		if err := os.Remove(sidecar); err != nil {
			res.Outcome = Failed
			res.Reason = err.Error()
			return res
		}
		res.BytesFreed += size
		removed++
	}

	if removed == 0 {
		res.Outcome = Skipped
		res.Reason = "already clean"
		return res
	}
	res.Outcome = Succeeded
	return res
}

func (e *Executor) setPreference(a plan.Action) ActionResult {
	res := ActionResult{Action: a}

	missing, err := e.checkPath(a.Path)
	if err != nil {
		res.Outcome = Failed
		res.Reason = err.Error()
		return res
	}

	prefs, err := e.prefs.ReadPreferences(a.Path)
	if err != nil {
		res.Outcome = Failed
		res.Reason = err.Error()
		return res
	}
	if current, ok := prefs[a.PrefKey]; ok && sameValue(current, a.PrefValue) {
		res.Outcome = Skipped
		res.Reason = "already set"
		return res
	}

	// A fresh preference file overwrites nothing; an existing one must
	// be in the backup before it is rewritten.
	if !missing && !e.manifest.Covers(a.Path) {
		res.Outcome = Failed
		res.Reason = "not covered by the backup"
		return res
	}

	prefs[a.PrefKey] = a.PrefValue
	if err := e.prefs.WritePreferences(a.Path, prefs); err != nil {
		res.Outcome = Failed
		res.Reason = err.Error()
		return res
	}
	res.Outcome = Succeeded
	return res
}

// checkPath guards every mutation. The path must sit inside the profile
// root both lexically and after resolving symlinked ancestors, so a
// planted link cannot redirect a deletion at something outside the
// profile. Reports whether the target is absent.
func (e *Executor) checkPath(path string) (missing bool, err error) {
	if !within(e.profileRoot, path) {
		return false, errEscape
	}

	if _, lerr := os.Lstat(path); lerr != nil {
		if os.IsNotExist(lerr) {
			return true, nil
		}
		return false, lerr
	}

	parent, err := filepath.EvalSymlinks(filepath.Dir(path))
	if err != nil {
		return false, err
	}
	root, err := filepath.EvalSymlinks(e.profileRoot)
	if err != nil {
		return false, err
	}
	if !within(root, filepath.Join(parent, filepath.Base(path))) {
		return false, errEscape
	}
	return false, nil
}

// within reports whether child lies strictly beneath parent.
func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// pathSize measures a file or tree before deletion. Unreadable parts
// count as zero.
func pathSize(path string) int64 {
	var total int64
	filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total
}

// sameValue compares a stored preference against the desired one,
// treating all numeric widths as equal when the values match. Plist
// decoding does not preserve Go's original integer type.
func sameValue(a, b any) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum || bNum {
		return aNum && bNum && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
