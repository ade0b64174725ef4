package app

import (
	"testing"

	"github.com/blackwell-systems/browsermend/internal/probe"
	"github.com/blackwell-systems/browsermend/internal/score"
)

func TestDiagnoseCommandFlags(t *testing.T) {
	for _, name := range []string{"advanced", "still-slow", "json"} {
		if diagnoseCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag to be registered", name)
		}
	}
}

func TestDiagnosisReport(t *testing.T) {
	s := score.Score{
		Value: 55,
		Band:  score.BandFor(55),
		Issues: []score.Issue{
			{
				Severity:    score.SeveritySevere,
				Category:    probe.Cache,
				Description: "browser cache has grown to 847 MB",
				SuggestedAction: &score.ActionRef{
					Op:    score.OpDeletePath,
					Path:  "/p/Cache",
					Bytes: 847 * 1024 * 1024,
				},
			},
			{
				Severity:    score.SeverityMinor,
				Category:    probe.Network,
				Description: "DNS lookups are slow",
			},
		},
	}
	findings := []probe.Finding{
		{Probe: "cache-size", Category: probe.Cache, Metric: "Cache", Value: 888, Unit: probe.Bytes},
		{Probe: "dns-latency", Category: probe.Network, Metric: "example.com", Unknown: true, Err: "lookup timed out"},
	}

	report := diagnosisReport(s, findings)

	if report.Score != 55 || report.Band != "fair" {
		t.Errorf("unexpected score/band: %d/%s", report.Score, report.Band)
	}
	if len(report.Issues) != 2 || len(report.Findings) != 2 {
		t.Fatalf("expected 2 issues and 2 findings, got %d/%d", len(report.Issues), len(report.Findings))
	}

	fixable := report.Issues[0]
	if fixable.Severity != "severe" || fixable.Category != "cache" {
		t.Errorf("unexpected issue classification: %+v", fixable)
	}
	if fixable.Advisory {
		t.Error("an issue with a suggested action is not advisory")
	}
	if fixable.Reclaimable != 847*1024*1024 {
		t.Errorf("unexpected reclaimable bytes: %d", fixable.Reclaimable)
	}
	if !report.Issues[1].Advisory {
		t.Error("an issue without a suggested action is advisory")
	}

	unknown := report.Findings[1]
	if unknown.Error != "lookup timed out" {
		t.Errorf("unexpected probe error: %q", unknown.Error)
	}
	if unknown.Value != 0 || unknown.Unit != "" {
		t.Errorf("a failed probe must not report a measurement: %+v", unknown)
	}
	if report.Findings[0].Unit != "bytes" {
		t.Errorf("unexpected unit: %q", report.Findings[0].Unit)
	}
}
