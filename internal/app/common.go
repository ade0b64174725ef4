package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/blackwell-systems/browsermend/internal/browser"
	"github.com/blackwell-systems/browsermend/internal/cleanup"
	"github.com/blackwell-systems/browsermend/internal/config"
	"github.com/blackwell-systems/browsermend/internal/output"
	"github.com/blackwell-systems/browsermend/internal/plan"
)

// Process exit codes. 0 is success; anything the pipeline aborted before
// touching a file exits 1 through main's error printer or exitAborted.
const (
	// exitAborted: the run stopped before any mutation (declined,
	// precondition failed, backup failed).
	exitAborted = 1

	// exitWarnings: the cleanup finished but some actions failed.
	exitWarnings = 2

	// exitRolledBack: post-cleanup verification failed and the backup
	// was restored.
	exitRolledBack = 3
)

// executePlan drives the shared cleanup flow for clean and rescue: show the
// plan, confirm, back up, execute, verify. Dry runs stop after the plan.
// strict requires the literal word "yes" at the prompt.
func executePlan(ctx context.Context, profile *config.Profile, settings *config.Settings, tel *browser.Telemetry, pl *plan.Plan, assumeYes, strict, dryRun bool) error {
	if pl.Empty() {
		fmt.Println("Nothing to clean; the profile is already tidy.")
		return nil
	}

	fmt.Println()
	fmt.Print(output.RenderPlanTable(pl, profile.Root))
	fmt.Println()

	if dryRun {
		fmt.Println("Dry-run mode: no files will be touched.")
		return nil
	}

	pipe := cleanup.NewPipeline(profile, resolveBackupBase(settings, profile), tel)

	progress := output.NewProgress(len(pl.Actions), "Cleaning profile")
	pipe.OnAction = func(done, total int, r cleanup.ActionResult) {
		progress.Increment()
	}

	approve := func(p *plan.Plan) bool {
		if assumeYes {
			return true
		}
		return confirmCleanup(len(p.Actions), strict)
	}

	report, err := pipe.Run(ctx, pl, approve)
	if errors.Is(err, cleanup.ErrDeclined) {
		fmt.Println("Cleanup cancelled; nothing was touched.")
		// os.Exit keeps main's error printer out of the cancelled path.
		os.Exit(exitAborted)
	}
	if err != nil {
		return err
	}
	progress.Finish()

	fmt.Println()
	fmt.Print(output.RenderResultTable(report.Results, profile.Root))
	fmt.Println()

	switch report.Status {
	case cleanup.StatusRolledBack:
		fmt.Printf("✗ Verification failed: %s\n", report.RollbackReason)
		fmt.Printf("Every backed-up file was restored from %s\n", report.BackupRoot)
		os.Exit(exitRolledBack)
	case cleanup.StatusWarnings:
		fmt.Printf("⚠ Finished with failures. Freed %s. Backup: %s\n",
			output.FormatSize(report.BytesFreed), report.BackupRoot)
		os.Exit(exitWarnings)
	}

	fmt.Printf("✓ Freed %s. Backup kept at %s\n", output.FormatSize(report.BytesFreed), report.BackupRoot)
	fmt.Println("Undo with: browsermend restore latest")
	return nil
}

// confirmCleanup prompts the user to confirm the cleanup. The strict form,
// used by rescue, requires the literal string "yes"; the standard form
// accepts "y" or "yes".
func confirmCleanup(count int, strict bool) bool {
	if strict {
		fmt.Printf("WARNING: You are about to reset %d targets, including session state and\n", count)
		fmt.Println("rebuildable databases. Open tabs will not come back. A backup is made first.")
		fmt.Print("Type \"yes\" to confirm (or press Enter to cancel): ")

		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		return strings.TrimSpace(response) == "yes"
	}
	return confirm(fmt.Sprintf("Proceed with %d cleanup action(s)? [y/N]: ", count))
}

// confirm prints prompt and accepts "y" or "yes", case-insensitive.
func confirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(response))
	return answer == "y" || answer == "yes"
}
