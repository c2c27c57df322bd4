package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	domain "github.com/bryanwahyu/secscan/internal/domain/scans"
)

// Report file names inside the report directory.
const (
	SummaryJSON = "security_summary.json"
	SummaryMD   = "security_summary.md"
	AdviceMD    = "security_advice.md"
)

type Rendered struct {
	JSON     []byte
	Markdown []byte
}

// Render produces both summary documents for run. It has no side effects and
// the same run always renders to the same bytes.
func Render(run domain.ScanRun) (Rendered, error) {
	js, err := RenderJSON(run)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{JSON: js, Markdown: RenderMarkdown(run)}, nil
}

func RenderJSON(run domain.ScanRun) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	return buf.Bytes(), nil
}

func RenderMarkdown(run domain.ScanRun) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Security Scan Summary Report\n\n")
	fmt.Fprintf(&b, "**Scan Date:** %s\n", run.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "**Project:** %s\n", run.Project)
	fmt.Fprintf(&b, "**Run ID:** %s\n\n", run.ID)

	fmt.Fprintf(&b, "## Overall Security Posture\n\n")
	fmt.Fprintf(&b, "**Status:** %s  \n", run.Posture)
	fmt.Fprintf(&b, "**Security Score:** %d/100\n\n", run.Score)
	if run.InsufficientData {
		fmt.Fprintf(&b, "> **Insufficient data:** no checks could be performed, the score carries no assurance.\n\n")
	}

	fmt.Fprintf(&b, "## Checks Performed\n\n")
	if len(run.ChecksPerformed) == 0 {
		fmt.Fprintf(&b, "_None._\n")
	}
	for _, c := range run.ChecksPerformed {
		fmt.Fprintf(&b, "- ✓ %s\n", c)
	}
	for _, s := range run.SkippedChecks {
		fmt.Fprintf(&b, "- ✗ %s (skipped: %s)\n", s.Check, s.Reason)
	}
	fmt.Fprintf(&b, "\n")

	fmt.Fprintf(&b, "## Findings Summary\n\n")
	fmt.Fprintf(&b, "| Check | Status | Issues Found |\n")
	fmt.Fprintf(&b, "|-------|--------|-------------|\n")
	for _, c := range run.Checks {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", c.Name, c.Status, issuesCell(c))
	}
	fmt.Fprintf(&b, "\n**Totals:** %d High, %d Medium, %d Low, %d Info",
		run.Counts.High, run.Counts.Medium, run.Counts.Low, run.Counts.Info)
	if run.Counts.Accepted > 0 {
		fmt.Fprintf(&b, " (%d accepted risk)", run.Counts.Accepted)
	}
	fmt.Fprintf(&b, "\n\n")

	if actionable := sortedFindings(run.Findings); len(actionable) > 0 {
		fmt.Fprintf(&b, "## Findings\n\n")
		for _, f := range actionable {
			fmt.Fprintf(&b, "- **[%s]** %s", f.Severity, f.Description)
			if f.Location != "" {
				fmt.Fprintf(&b, " (`%s`)", f.Location)
			}
			if f.Status == domain.StatusAcceptedRisk {
				fmt.Fprintf(&b, " _accepted risk_")
			}
			fmt.Fprintf(&b, "\n")
		}
		fmt.Fprintf(&b, "\n")
	}

	if len(run.Warnings) > 0 {
		fmt.Fprintf(&b, "## Warnings\n\n")
		for _, w := range run.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "## Recommendation\n\n%s\n\n", run.Recommendation)

	fmt.Fprintf(&b, "## Detailed Reports\n\n")
	fmt.Fprintf(&b, "Full reports available in the report directory:\n")
	if !run.Skipped(domain.CheckStaticAnalysis) {
		fmt.Fprintf(&b, "- `bandit_report.json` - Machine-readable SAST results\n")
	}
	if !run.Skipped(domain.CheckDependencies) {
		fmt.Fprintf(&b, "- `pip_audit.json` - Dependency vulnerability results\n")
	}
	fmt.Fprintf(&b, "- `%s` - Complete scan results\n", SummaryJSON)
	return b.Bytes()
}

func issuesCell(c domain.CheckSummary) string {
	if c.Status == domain.CheckSkipped {
		return "N/A (" + c.Reason + ")"
	}
	cell := fmt.Sprintf("%d High, %d Medium, %d Low", c.Counts.High, c.Counts.Medium, c.Counts.Low)
	if c.Counts.Accepted > 0 {
		cell += fmt.Sprintf(", %d accepted", c.Counts.Accepted)
	}
	return cell
}

// sortedFindings returns a copy of the non-INFO findings, most severe first.
func sortedFindings(in []domain.Finding) []domain.Finding {
	out := make([]domain.Finding, 0, len(in))
	for _, f := range in {
		if f.Severity != domain.SeverityInfo {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return severityRank(out[i].Severity) > severityRank(out[j].Severity)
	})
	return out
}

func severityRank(s domain.Severity) int {
	switch s {
	case domain.SeverityHigh:
		return 3
	case domain.SeverityMedium:
		return 2
	case domain.SeverityLow:
		return 1
	default:
		return 0
	}
}
