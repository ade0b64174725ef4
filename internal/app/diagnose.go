package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/browsermend/internal/browser"
	"github.com/blackwell-systems/browsermend/internal/config"
	"github.com/blackwell-systems/browsermend/internal/output"
	"github.com/blackwell-systems/browsermend/internal/probe"
	"github.com/blackwell-systems/browsermend/internal/score"
)

var (
	diagnoseFlagAdvanced  bool
	diagnoseFlagStillSlow bool
	diagnoseFlagJSON      bool
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Score the profile's health and list what is slowing it down",
	Long: `Probe the Orion profile and score its health 0-100.

The standard pass measures cache sizes, database health, running
processes, memory pressure, disk space and DNS latency. The deep pass
adds per-process detail, extension audits, preference checks, crash
reports, lock files and a comparison against Safari's profile.

The deep pass runs when --advanced is given, when any issue is critical,
or when --still-slow is given and the score still looks healthy. That
last case is the classic "score says fine, browser says beachball"
situation, and the deep probes usually find the reason.

diagnose never modifies the profile. Use 'browsermend clean' to act on
what it finds.

Examples:
  # Standard health report
  browsermend diagnose

  # The score is high but browsing still feels slow
  browsermend diagnose --still-slow

  # Full probe detail, machine readable
  browsermend diagnose --advanced --json`,
	RunE: runDiagnose,
}

func init() {
	diagnoseCmd.Flags().BoolVar(&diagnoseFlagAdvanced, "advanced", false, "Always run the deep probe pass")
	diagnoseCmd.Flags().BoolVar(&diagnoseFlagStillSlow, "still-slow", false, "The browser feels slow even if the score disagrees")
	diagnoseCmd.Flags().BoolVar(&diagnoseFlagJSON, "json", false, "Emit the diagnosis as JSON")

	RootCmd.AddCommand(diagnoseCmd)
}

func runDiagnose(cmd *cobra.Command, args []string) error {
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

	s, findings, err := runProbes(cmd.Context(), profile, settings, tel, engine,
		diagnoseFlagAdvanced, diagnoseFlagStillSlow, !diagnoseFlagJSON)
	if err != nil {
		return err
	}

	if diagnoseFlagJSON {
		data, err := json.MarshalIndent(diagnosisReport(s, findings), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode diagnosis: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println()
	fmt.Println(output.RenderScoreSummary(s))
	fmt.Println()
	if len(s.Issues) == 0 {
		fmt.Println("No issues found.")
	} else {
		fmt.Print(output.RenderIssueTable(s.Issues))
		fmt.Println()
		fmt.Println("Fix the fixable ones with: browsermend clean")
	}

	if diagnoseFlagAdvanced {
		fmt.Println()
		fmt.Print(output.RenderFindingTable(findings))
	}
	return nil
}

// runProbes executes the standard probe pass, escalates to the deep pass
// when forced or when the escalator fires, and scores the merged findings.
// showProgress false keeps spinners out of machine-readable output.
func runProbes(ctx context.Context, profile *config.Profile, settings *config.Settings, tel *browser.Telemetry, engine *score.Engine, advanced, stillSlow, showProgress bool) (score.Score, []probe.Finding, error) {
	if _, err := os.Stat(profile.Root); err != nil {
		return score.Score{}, nil, fmt.Errorf("no %s profile found at %s", profile.Name, profile.Root)
	}

	opts := probe.Options{
		Timeout: settings.ProbeTimeout.Std(),
		Limit:   settings.ProbeLimit,
	}

	var spinner *output.Spinner
	if showProgress {
		spinner = output.NewSpinner("Probing profile...")
		spinner.Start()
	}
	findings := probe.Run(ctx, tel, probe.BasicSet(profile), opts)
	if spinner != nil {
		spinner.StopWithMessage(fmt.Sprintf("✓ Probed %d signals", len(findings)))
	}

	s := engine.Evaluate(findings)

	escalator := score.NewEscalator(settings.PerfectScore)
	if advanced || escalator.ShouldEscalate(s, stillSlow) {
		deepCtx, cancel := context.WithTimeout(ctx, settings.AdvancedBudget.Std())
		defer cancel()

		if showProgress {
			spinner = output.NewSpinner("Running deep probes...")
			spinner.Start()
		}
		deep := probe.Run(deepCtx, tel, probe.AdvancedSet(profile), opts)
		if spinner != nil {
			spinner.StopWithMessage(fmt.Sprintf("✓ Probed %d deep signals", len(deep)))
		}

		findings = append(findings, deep...)
		s = engine.Evaluate(findings)
	}

	return s, findings, nil
}

// diagnosisJSON is the machine-readable shape of a diagnosis.
type diagnosisJSON struct {
	Score    int           `json:"score"`
	Band     string        `json:"band"`
	Issues   []issueJSON   `json:"issues"`
	Findings []findingJSON `json:"findings"`
}

type issueJSON struct {
	Severity    string `json:"severity"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Reclaimable int64  `json:"reclaimable_bytes,omitempty"`
	Advisory    bool   `json:"advisory"`
}

type findingJSON struct {
	Probe    string  `json:"probe"`
	Category string  `json:"category"`
	Metric   string  `json:"metric"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit,omitempty"`
	Path     string  `json:"path,omitempty"`
	Error    string  `json:"error,omitempty"`
}

func diagnosisReport(s score.Score, findings []probe.Finding) diagnosisJSON {
	report := diagnosisJSON{
		Score:    s.Value,
		Band:     s.Band.String(),
		Issues:   make([]issueJSON, 0, len(s.Issues)),
		Findings: make([]findingJSON, 0, len(findings)),
	}
	for _, issue := range s.Issues {
		j := issueJSON{
			Severity:    issue.Severity.String(),
			Category:    issue.Category.String(),
			Description: issue.Description,
			Advisory:    issue.SuggestedAction == nil,
		}
		if issue.SuggestedAction != nil {
			j.Reclaimable = issue.SuggestedAction.Bytes
		}
		report.Issues = append(report.Issues, j)
	}
	for _, f := range findings {
		j := findingJSON{
			Probe:    f.Probe,
			Category: f.Category.String(),
			Metric:   f.Metric,
			Path:     f.Path,
			Error:    f.Err,
		}
		if !f.Unknown {
			j.Value = f.Value
			j.Unit = f.Unit.String()
		}
		report.Findings = append(report.Findings, j)
	}
	return report
}
