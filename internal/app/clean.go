package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/browsermend/internal/browser"
	"github.com/blackwell-systems/browsermend/internal/output"
	"github.com/blackwell-systems/browsermend/internal/plan"
	"github.com/blackwell-systems/browsermend/internal/score"
)

var (
	cleanFlagYes       bool
	cleanFlagDryRun    bool
	cleanFlagStillSlow bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Fix what diagnose found, behind a mandatory backup",
	Long: `Diagnose the profile, build a cleanup plan from the fixable issues, and
execute it.

The plan is always shown before anything happens. Every target is copied
into a timestamped backup folder on the Desktop first; there is no way to
skip the backup. After the cleanup the profile's critical files (bookmarks,
passwords, extension settings) are verified, and a failed verification
restores every backed-up file automatically.

Bookmarks, passwords, keychain data and extension settings are never
cleanup targets. Databases in active use by a running browser are left
alone.

Safety features:
  - Explicit plan with per-target size estimates before any change
  - Mandatory pre-cleanup backup with checksummed manifest
  - Post-cleanup verification of critical files
  - Automatic rollback when verification fails

Exit status: 0 clean, 1 aborted before any change, 2 finished with
failures, 3 rolled back after a failed verification.

Examples:
  # Preview without touching anything
  browsermend clean --dry-run

  # Clean up, answering the confirmation prompt
  browsermend clean

  # Unattended cleanup
  browsermend clean --yes`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanFlagYes, "yes", false, "Skip the confirmation prompt")
	cleanCmd.Flags().BoolVar(&cleanFlagDryRun, "dry-run", false, "Show the plan without executing it")
	cleanCmd.Flags().BoolVar(&cleanFlagStillSlow, "still-slow", false, "The browser feels slow even if the score disagrees")

	RootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	profile, err := loadProfile()
	if err != nil {
		return err
	}
	engine, err := score.NewEngine(profile, settings)
	if err != nil {
		return err
	}
	tel := browser.New()

	s, _, err := runProbes(cmd.Context(), profile, settings, tel, engine,
		false, cleanFlagStillSlow, true)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(output.RenderScoreSummary(s))

	pl := plan.New(profile, tel).FromIssues(s.Issues)
	return executePlan(cmd.Context(), profile, settings, tel, pl,
		cleanFlagYes, false, cleanFlagDryRun)
}
