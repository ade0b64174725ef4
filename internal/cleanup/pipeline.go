package cleanup

import (
	"context"
	"errors"
	"fmt"

	"github.com/blackwell-systems/browsermend/internal/backup"
	"github.com/blackwell-systems/browsermend/internal/browser"
	"github.com/blackwell-systems/browsermend/internal/config"
	"github.com/blackwell-systems/browsermend/internal/plan"
)

// Status is the overall outcome of one cleanup run.
type Status int

const (
	// StatusSucceeded means every action succeeded or was already clean.
	StatusSucceeded Status = iota

	// StatusWarnings means the run completed and verification passed,
	// but some actions failed.
	StatusWarnings

	// StatusRolledBack means verification found a damaged critical file
	// and every backed-up file was restored.
	StatusRolledBack
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusWarnings:
		return "completed with warnings"
	case StatusRolledBack:
		return "rolled back"
	default:
		return "unknown"
	}
}

// ErrDeclined is returned when the approval hook rejects the plan.
// Nothing has been touched, no backup has been taken.
var ErrDeclined = errors.New("cleanup declined")

// Report is the full account of one cleanup run.
type Report struct {
	Status     Status
	Results    []ActionResult
	BytesFreed int64

	// BackupRoot is the backup taken for this run, empty when the plan
	// was empty.
	BackupRoot string

	// RollbackReason names the damaged critical files when Status is
	// StatusRolledBack.
	RollbackReason string
}

// Pipeline runs approved plans: back up every target, execute, verify,
// and roll back if verification fails.
type Pipeline struct {
	profile    *config.Profile
	backupBase string
	tel        *browser.Telemetry
	verifier   *Verifier

	// OnAction, when set, observes each executed action. The CLI uses
	// it to drive a progress bar.
	OnAction func(done, total int, r ActionResult)
}

// NewPipeline returns a pipeline for one profile. Backups land under
// backupBase.
func NewPipeline(profile *config.Profile, backupBase string, tel *browser.Telemetry) *Pipeline {
	return &Pipeline{
		profile:    profile,
		backupBase: backupBase,
		tel:        tel,
		verifier:   NewVerifier(profile, tel),
	}
}

// Run takes the plan through approval, backup, execution, and
// verification. A nil approve skips the approval gate. Errors are
// returned only for pre-mutation aborts (a declined plan, a failed
// backup), after which the profile is untouched. Once mutation starts
// the run always completes and the outcome comes back as a Report.
func (p *Pipeline) Run(ctx context.Context, pl *plan.Plan, approve func(*plan.Plan) bool) (*Report, error) {
	if pl.Empty() {
		return &Report{Status: StatusSucceeded}, nil
	}
	if approve != nil && !approve(pl) {
		return nil, ErrDeclined
	}

	// From here on a cancelled caller context must not strand a
	// half-cleaned profile.
	ctx = context.WithoutCancel(ctx)

	pre := p.verifier.PreExisting()
	b, err := backup.Create(p.backupBase, p.profile.Name, p.profile.Root, backupTargets(pl, pre))
	if err != nil {
		return nil, fmt.Errorf("backup failed, nothing was touched: %w", err)
	}

	exec := NewExecutor(p.profile.Root, b.Manifest, p.runningChecker(ctx), p.tel)
	exec.OnAction(p.OnAction)
	report := &Report{Results: exec.Execute(pl), BackupRoot: b.Root}
	for _, r := range report.Results {
		report.BytesFreed += r.BytesFreed
	}

	if verr := p.verifier.Verify(ctx, pre); verr != nil {
		report.Status = StatusRolledBack
		report.RollbackReason = verr.Error()
		if _, rerr := backup.Restore(b.Manifest); rerr != nil {
			report.RollbackReason = fmt.Sprintf("%s (restore incomplete: %v)", verr, rerr)
		}
		return report, nil
	}

	report.Status = StatusSucceeded
	for _, r := range report.Results {
		if r.Outcome == Failed {
			report.Status = StatusWarnings
			break
		}
	}
	return report, nil
}

// backupTargets is every path the plan will touch, the main database for
// each sidecar strip (a restored write-ahead log must pair with the exact
// database it belonged to), and every pre-existing critical file.
func backupTargets(pl *plan.Plan, preExisting []string) []string {
	targets := pl.Targets()
	for _, a := range pl.Actions {
		if a.Kind == plan.StripDatabaseSidecars {
			targets = append(targets, a.Path)
		}
	}
	return append(targets, preExisting...)
}

// runningChecker wraps the live process probe. An unverifiable process
// table counts as running.
func (p *Pipeline) runningChecker(ctx context.Context) RunningChecker {
	return func() bool {
		running, err := p.tel.IsRunning(ctx, p.profile.ProcessFilter)
		return err != nil || running
	}
}
