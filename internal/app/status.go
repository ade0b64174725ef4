package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/browsermend/internal/backup"
	"github.com/blackwell-systems/browsermend/internal/browser"
	"github.com/blackwell-systems/browsermend/internal/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the profile at a glance, without scoring it",
	Long: `Display a quick overview of the Orion profile.

Shows:
  • Whether the browser is running, and its memory footprint
  • How much the caches and history files currently occupy
  • How many extensions are installed
  • The backups available to restore

status reads sizes but runs no health probes and computes no score.
Use 'browsermend diagnose' for the full report.`,
	Example: `  # Check the profile
  browsermend status`,
	RunE: runStatus,
}

func init() {
	// Register with root command
	RootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	profile, err := loadProfile()
	if err != nil {
		return err
	}
	tel := browser.New()
	ctx := cmd.Context()

	fmt.Printf("%s profile: %s\n", profile.Name, profile.Root)
	if _, err := os.Stat(profile.Root); err != nil {
		fmt.Println("✗ Profile directory not found. Is the browser installed?")
		return nil
	}
	fmt.Println()

	procs, err := tel.Processes(ctx, profile.ProcessFilter)
	switch {
	case err != nil:
		fmt.Printf("⚠ Cannot read the process table: %v\n", err)
	case len(procs) == 0:
		fmt.Println("• Browser: not running")
	default:
		var resident uint64
		for _, p := range procs {
			resident += p.RSSBytes
		}
		fmt.Printf("• Browser: running, %d process(es), %s resident\n",
			len(procs), output.FormatSize(int64(resident)))
	}

	var cacheTotal int64
	for _, cache := range profile.Caches {
		if size, err := tel.SizeOf(ctx, profile.Path(cache.Rel)); err == nil {
			cacheTotal += size
		}
	}
	fmt.Printf("• Caches: %s\n", output.FormatSize(cacheTotal))

	var historyTotal int64
	for _, rel := range profile.HistoryFiles {
		if size, err := tel.SizeOf(ctx, profile.Path(rel)); err == nil {
			historyTotal += size
		}
	}
	fmt.Printf("• History: %s\n", output.FormatSize(historyTotal))

	if names, err := tel.ListDir(profile.Path(profile.ExtensionsDir)); err == nil {
		fmt.Printf("• Extensions: %d installed\n", len(names))
	}

	if total, err := tel.SizeOf(ctx, profile.Root); err == nil {
		fmt.Printf("• Profile size: %s\n", output.FormatSize(total))
	}

	base := resolveBackupBase(settings, profile)
	backups, err := backup.List(base, profile.Name)
	switch {
	case err != nil || len(backups) == 0:
		fmt.Println("• Backups: none")
	default:
		newest := backups[0].Manifest.CreatedAt
		fmt.Printf("• Backups: %d under %s (newest %s)\n",
			len(backups), base, newest.Format("2006-01-02 15:04"))
	}

	fmt.Println()
	fmt.Println("Run 'browsermend diagnose' for a scored health report.")
	return nil
}
