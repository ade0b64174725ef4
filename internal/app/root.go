package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/browsermend/internal/config"
)

var (
	profileRoot string
	backupDir   string
	configPath  string

	// RootCmd is the root command for browsermend
	RootCmd = &cobra.Command{
		Use:   "browsermend",
		Short: "Diagnose and clean a sluggish Orion browser profile",
		Long: `browsermend measures an Orion profile's caches, databases, processes and
network health, scores the result 0-100, and fixes what it found behind a
mandatory backup.

Every cleanup follows the same shape: an explicit plan is shown first,
every target is copied into a timestamped backup folder before anything
is deleted, and the profile's critical files are verified afterwards. A
failed verification restores the backup automatically.

Quick Start:
  1. browsermend diagnose
  2. browsermend clean
  3. If the browser is beachballing: browsermend rescue --kill

Examples:
  # Score the profile and list issues
  browsermend diagnose

  # The score looks fine but browsing still feels slow
  browsermend diagnose --still-slow

  # Preview the cleanup without touching anything
  browsermend clean --dry-run

  # Clean up, skipping the confirmation prompt
  browsermend clean --yes

  # Emergency: force-quit the browser and reset everything rebuildable
  browsermend rescue --kill

  # Put everything back the way it was
  browsermend restore latest`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("browsermend: Orion profile diagnosis and cleanup")
			fmt.Println()
			profile, err := loadProfile()
			if err == nil {
				if _, statErr := os.Stat(profile.Root); statErr == nil {
					fmt.Println("Tip: Run 'browsermend diagnose' for a scored health report.")
					fmt.Println("     Run 'browsermend clean --dry-run' to preview a cleanup.")
					fmt.Println("     Run 'browsermend --help' for all commands.")
				} else {
					fmt.Printf("No %s profile found at %s\n", profile.Name, profile.Root)
					fmt.Println("Run 'browsermend --help' for the full reference.")
				}
			}
			return nil
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&profileRoot, "profile-root", "", "profile directory (default: ~/Library/Application Support/Orion)")
	RootCmd.PersistentFlags().StringVar(&backupDir, "backup-dir", "", "where cleanup backups are created (default: ~/Desktop)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ~/.config/browsermend/config.yaml)")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// loadSettings reads the optional config file, honoring --config.
func loadSettings() (*config.Settings, error) {
	return config.Load(configPath)
}

// loadProfile builds the Orion profile description, honoring --profile-root.
func loadProfile() (*config.Profile, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	profile := config.DefaultProfile(home)
	if profileRoot != "" {
		profile.Root = profileRoot
	}
	return profile, nil
}

// resolveBackupBase picks the backup destination: the --backup-dir flag
// first, then the config file, then the user's Desktop.
func resolveBackupBase(settings *config.Settings, profile *config.Profile) string {
	if backupDir != "" {
		return backupDir
	}
	if settings.BackupBase != "" {
		return settings.BackupBase
	}
	return filepath.Join(profile.HomeDir, "Desktop")
}
