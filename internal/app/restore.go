package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/browsermend/internal/backup"
	"github.com/blackwell-systems/browsermend/internal/output"
)

var (
	restoreFlagList bool
	restoreFlagYes  bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore [backup-dir | latest]",
	Short: "Copy files back from a cleanup backup",
	Long: `Undo a cleanup by copying every file in a backup back to where it came
from.

Each cleanup leaves a timestamped backup folder with a checksummed
manifest. restore replays that manifest: every entry is copied back to
its original path, and a copy whose checksum no longer matches the
manifest is refused rather than written over the profile.

Quit the browser before restoring, or it may overwrite the restored
files on exit.

Examples:
  # See the available backups
  browsermend restore --list

  # Put the most recent backup back
  browsermend restore latest

  # Restore a specific backup folder
  browsermend restore ~/Desktop/Orion_Backup_20260825_143015`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVar(&restoreFlagList, "list", false, "List available backups and exit")
	restoreCmd.Flags().BoolVar(&restoreFlagYes, "yes", false, "Skip the confirmation prompt")

	RootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	profile, err := loadProfile()
	if err != nil {
		return err
	}
	base := resolveBackupBase(settings, profile)

	if restoreFlagList || len(args) == 0 {
		backups, err := backup.List(base, profile.Name)
		if err != nil {
			return fmt.Errorf("failed to list backups: %w", err)
		}
		if len(backups) == 0 {
			fmt.Printf("No backups found under %s\n", base)
			return nil
		}
		fmt.Print(output.RenderBackupTable(backups))
		fmt.Println()
		fmt.Println("Restore with: browsermend restore latest")
		return nil
	}

	var manifest *backup.Manifest
	var root string
	if args[0] == "latest" {
		info, err := backup.Latest(base, profile.Name)
		if err != nil {
			return fmt.Errorf("failed to find the latest backup: %w", err)
		}
		if info == nil {
			return fmt.Errorf("no backups found under %s", base)
		}
		manifest, root = info.Manifest, info.Root
	} else {
		root = args[0]
		manifest, err = backup.Load(root)
		if err != nil {
			return fmt.Errorf("failed to read backup %s: %w", root, err)
		}
	}

	fmt.Printf("Backup: %s\n", root)
	fmt.Printf("  Created: %s\n", manifest.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Files:   %d (%s)\n", len(manifest.Entries), output.FormatSize(manifest.TotalBytes()))
	fmt.Println()

	if !restoreFlagYes {
		if !confirm(fmt.Sprintf("Restore %d file(s) into %s? [y/N]: ", len(manifest.Entries), manifest.ProfileRoot)) {
			fmt.Println("Restore cancelled.")
			// os.Exit keeps main's error printer out of the cancelled path.
			os.Exit(exitAborted)
		}
	}

	restored, err := backup.Restore(manifest)
	if err != nil {
		fmt.Printf("Restored %d of %d files.\n", restored, len(manifest.Entries))
		return fmt.Errorf("restore incomplete: %w", err)
	}

	fmt.Printf("✓ Restored %d file(s) into %s\n", restored, manifest.ProfileRoot)
	return nil
}
