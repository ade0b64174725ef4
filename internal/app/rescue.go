package app

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/browsermend/internal/browser"
	"github.com/blackwell-systems/browsermend/internal/plan"
)

var (
	rescueFlagKill   bool
	rescueFlagYes    bool
	rescueFlagDryRun bool
)

var rescueCmd = &cobra.Command{
	Use:   "rescue",
	Short: "Emergency reset for a beachballing browser",
	Long: `Reset everything rebuildable in one pass, without diagnosing first.

rescue is for the browser that is spinning, hanging on launch, or too
slow to use: it skips scoring and builds the maximal plan directly -
every cache, session state, rebuildable databases, stale lock files and
old profile backups. The browser rebuilds all of it on next launch;
open tabs are lost.

With --kill, matching browser processes are force-terminated first so
their database locks are released. Without it, targets still held open
by a running browser are skipped rather than risked.

The same safety net applies as for clean: explicit plan, mandatory
backup, post-run verification, automatic rollback. Bookmarks, passwords
and extension settings are never touched.

Examples:
  # See what a rescue would reset
  browsermend rescue --dry-run

  # The browser is stuck: kill it and reset
  browsermend rescue --kill

  # Unattended
  browsermend rescue --kill --yes`,
	RunE: runRescue,
}

func init() {
	rescueCmd.Flags().BoolVar(&rescueFlagKill, "kill", false, "Force-terminate browser processes first")
	rescueCmd.Flags().BoolVar(&rescueFlagYes, "yes", false, "Skip the confirmation prompt")
	rescueCmd.Flags().BoolVar(&rescueFlagDryRun, "dry-run", false, "Show the plan without executing it")

	RootCmd.AddCommand(rescueCmd)
}

func runRescue(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	profile, err := loadProfile()
	if err != nil {
		return err
	}
	if _, err := os.Stat(profile.Root); err != nil {
		return fmt.Errorf("no %s profile found at %s", profile.Name, profile.Root)
	}
	tel := browser.New()

	if rescueFlagKill && !rescueFlagDryRun {
		killed, err := tel.KillAll(cmd.Context(), profile.ProcessFilter)
		if err != nil {
			return fmt.Errorf("failed to terminate %s processes: %w", profile.Name, err)
		}
		if killed > 0 {
			fmt.Printf("✓ Terminated %d %s process(es)\n", killed, profile.Name)
			// Killed processes release their database locks with a lag.
			time.Sleep(3 * time.Second)
		} else {
			fmt.Printf("No %s processes running.\n", profile.Name)
		}
	}

	pl := plan.New(profile, tel).Maximal()
	return executePlan(cmd.Context(), profile, settings, tel, pl,
		rescueFlagYes, true, rescueFlagDryRun)
}
