// Package output provides terminal output utilities for browsermend.
//
// This package includes:
//   - Table rendering for findings, issues, cleanup plans, run results, and backups
//   - Progress bars for long-running operations
//   - Spinners for indeterminate operations
//   - Human-readable formatting for sizes, dates, and other data
//
// All table rendering functions use ASCII characters and ANSI color codes for terminal output.
// Progress indicators are thread-safe and can be used from multiple goroutines.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/browsermend/internal/backup"
	"github.com/blackwell-systems/browsermend/internal/cleanup"
	"github.com/blackwell-systems/browsermend/internal/plan"
	"github.com/blackwell-systems/browsermend/internal/probe"
	"github.com/blackwell-systems/browsermend/internal/score"
)

// ANSI color codes for severity and band display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderScoreSummary renders the headline score line.
// Example: "Health score: 49/100 (POOR)"
func RenderScoreSummary(s score.Score) string {
	band := strings.ToUpper(s.Band.String())
	if IsColorEnabled() {
		return fmt.Sprintf("Health score: %s%d/100%s (%s%s%s)\n",
			bandColor(s.Band), s.Value, colorReset,
			bandColor(s.Band), band, colorReset)
	}
	return fmt.Sprintf("Health score: %d/100 (%s)\n", s.Value, band)
}

// RenderIssueTable renders the ranked issue list.
// Issues arrive pre-sorted by the scoring engine; order is preserved.
func RenderIssueTable(issues []score.Issue) string {
	if len(issues) == 0 {
		return "No issues found.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-10s %-10s %-56s %s\n",
		"Severity", "Category", "Issue", "Remedy"))
	sb.WriteString(strings.Repeat("─", 92))
	sb.WriteString("\n")

	for _, issue := range issues {
		sev := issue.Severity.String()
		remedy := "advice only"
		if issue.SuggestedAction != nil {
			if issue.SuggestedAction.Bytes > 0 {
				remedy = fmt.Sprintf("fix frees %s", FormatSize(issue.SuggestedAction.Bytes))
			} else {
				remedy = "fix available"
			}
		}

		if IsColorEnabled() {
			sb.WriteString(fmt.Sprintf("%s%-10s%s %-10s %-56s %s\n",
				severityColor(issue.Severity), sev, colorReset,
				issue.Category.String(),
				truncate(issue.Description, 56),
				remedy))
		} else {
			sb.WriteString(fmt.Sprintf("%-10s %-10s %-56s %s\n",
				sev,
				issue.Category.String(),
				truncate(issue.Description, 56),
				remedy))
		}
	}

	return sb.String()
}

// RenderFindingTable renders every raw measurement, the verbose companion
// to the issue table. Findings appear in probe declaration order.
func RenderFindingTable(findings []probe.Finding) string {
	if len(findings) == 0 {
		return "No measurements collected.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-22s %-10s %-34s %s\n",
		"Probe", "Category", "Metric", "Value"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, f := range findings {
		value := formatValue(f.Value, f.Unit)
		if f.Unknown {
			value = colorize(colorGray, "unknown")
			if f.Err != "" {
				value += " (" + truncate(f.Err, 30) + ")"
			}
		}
		sb.WriteString(fmt.Sprintf("%-22s %-10s %-34s %s\n",
			truncate(f.Probe, 22),
			f.Category.String(),
			truncate(f.Metric, 34),
			value))
	}

	return sb.String()
}

// RenderPlanTable renders a cleanup plan for approval. Paths under root
// are shown profile-relative.
func RenderPlanTable(p *plan.Plan, root string) string {
	if p.Empty() {
		return "Nothing to clean.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%4s %-16s %-40s %-9s %s\n",
		"#", "Action", "Target", "Reclaims", "Why"))
	sb.WriteString(strings.Repeat("─", 100))
	sb.WriteString("\n")

	for i, a := range p.Actions {
		target := relPath(root, a.Path)
		if a.Kind == plan.SetPreference {
			target = a.PrefKey
		}
		reclaim := "—"
		if a.ExpectedBytes > 0 {
			reclaim = FormatSize(a.ExpectedBytes)
		}
		sb.WriteString(fmt.Sprintf("%4d %-16s %-40s %-9s %s\n",
			i+1,
			a.Kind.String(),
			truncate(target, 40),
			reclaim,
			truncate(a.Reason, 34)))
	}

	sb.WriteString(fmt.Sprintf("\n%d actions, about %s to reclaim\n",
		len(p.Actions), FormatSize(p.ExpectedBytes())))

	return sb.String()
}

// RenderResultTable renders per-action outcomes after a cleanup run.
func RenderResultTable(results []cleanup.ActionResult, root string) string {
	if len(results) == 0 {
		return "No actions executed.\n"
	}

	var sb strings.Builder

	for _, r := range results {
		target := relPath(root, r.Action.Path)
		if r.Action.Kind == plan.SetPreference {
			target = r.Action.PrefKey
		}

		var line string
		switch r.Outcome {
		case cleanup.Succeeded:
			line = fmt.Sprintf("%s %-40s freed %s",
				colorize(colorGreen, "✓"), truncate(target, 40), FormatSize(r.BytesFreed))
		case cleanup.Skipped:
			line = fmt.Sprintf("%s %-40s skipped: %s",
				colorize(colorGray, "-"), truncate(target, 40), r.Reason)
		default:
			line = fmt.Sprintf("%s %-40s failed: %s",
				colorize(colorRed, "✗"), truncate(target, 40), r.Reason)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderBackupTable renders available backups, newest first as listed.
func RenderBackupTable(backups []backup.Info) string {
	if len(backups) == 0 {
		return "No backups found.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%4s %-17s %-7s %-9s %s\n",
		"#", "Created", "Files", "Size", "Location"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for i, b := range backups {
		sb.WriteString(fmt.Sprintf("%4d %-17s %-7d %-9s %s\n",
			i+1,
			formatRelativeTime(b.Manifest.CreatedAt),
			len(b.Manifest.Entries),
			FormatSize(b.Manifest.TotalBytes()),
			b.Root))
	}

	return sb.String()
}

// FormatSize converts bytes to human-readable size (GB, MB, KB).
func FormatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.0f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.0f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatValue renders a finding's value in its native unit.
func formatValue(v float64, u probe.Unit) string {
	switch u {
	case probe.Bytes:
		return FormatSize(int64(v))
	case probe.Milliseconds:
		return fmt.Sprintf("%.0f ms", v)
	case probe.Percent:
		return fmt.Sprintf("%.0f%%", v)
	case probe.Seconds:
		return formatSeconds(v)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

func formatSeconds(v float64) string {
	switch {
	case v >= 3600:
		return fmt.Sprintf("%.1f h", v/3600)
	case v >= 60:
		return fmt.Sprintf("%.0f min", v/60)
	default:
		return fmt.Sprintf("%.0f s", v)
	}
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	case diff < 30*24*time.Hour:
		weeks := int(diff.Hours() / 24 / 7)
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	case diff < 365*24*time.Hour:
		months := int(diff.Hours() / 24 / 30)
		if months == 1 {
			return "1 month ago"
		}
		return fmt.Sprintf("%d months ago", months)
	default:
		years := int(diff.Hours() / 24 / 365)
		if years == 1 {
			return "1 year ago"
		}
		return fmt.Sprintf("%d years ago", years)
	}
}

// severityColor returns the ANSI color code for an issue severity.
func severityColor(s score.Severity) string {
	switch s {
	case score.SeverityCritical, score.SeveritySevere:
		return colorRed
	case score.SeverityModerate:
		return colorYellow
	case score.SeverityMinor:
		return colorGreen
	default:
		return colorGray
	}
}

// bandColor returns the ANSI color code for a score band.
func bandColor(b score.Band) string {
	switch b {
	case score.BandExcellent, score.BandGood:
		return colorGreen
	case score.BandFair:
		return colorYellow
	default:
		return colorRed
	}
}

// relPath shortens path to its profile-relative form when it sits under
// root; anything else stays absolute.
func relPath(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
