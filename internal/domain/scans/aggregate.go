package scans

import (
	"fmt"
	"strings"
)

// AcceptedRisk marks findings of Check whose description, rule id or location
// contains Match as acknowledged. They stay in the report but are not scored.
type AcceptedRisk struct {
	Check  string `yaml:"check"`
	Match  string `yaml:"match"`
	Reason string `yaml:"reason"`
}

func (a AcceptedRisk) matches(f Finding) bool {
	if a.Match == "" || (a.Check != "" && a.Check != f.CheckName) {
		return false
	}
	return strings.Contains(f.Description, a.Match) ||
		strings.Contains(f.RuleID, a.Match) ||
		strings.Contains(f.Location, a.Match)
}

func validSeverity(s Severity) bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

// Aggregate folds adapter results into run, preserving execution order.
// Skipped results contribute no findings. The returned run is a new value;
// the input run is not modified.
func Aggregate(run ScanRun, results []CheckResult, accepted []AcceptedRisk) ScanRun {
	out := run
	out.ChecksPerformed = append([]string{}, run.ChecksPerformed...)
	out.SkippedChecks = append([]SkippedCheck{}, run.SkippedChecks...)
	out.Checks = append([]CheckSummary{}, run.Checks...)
	out.Findings = append([]Finding{}, run.Findings...)
	out.Warnings = append([]string(nil), run.Warnings...)

	for _, res := range results {
		if !res.OK {
			out.SkippedChecks = append(out.SkippedChecks, SkippedCheck{Check: res.Check, Reason: res.Reason})
			out.Checks = append(out.Checks, CheckSummary{Name: res.Check, Status: CheckSkipped, Reason: res.Reason})
			continue
		}

		out.ChecksPerformed = append(out.ChecksPerformed, res.Check)
		row := CheckSummary{Name: res.Check, Status: CheckCompleted}
		for _, f := range res.Findings {
			if f.CheckName == "" {
				f.CheckName = res.Check
			}
			if !validSeverity(f.Severity) {
				out.Warnings = append(out.Warnings, fmt.Sprintf(
					"%s: unknown severity %q coerced to LOW for %q", res.Check, string(f.Severity), f.Description))
				f.Severity = SeverityLow
			}
			if f.Status == "" {
				f.Status = StatusOpen
			}
			for _, a := range accepted {
				if a.matches(f) {
					f.Status = StatusAcceptedRisk
					break
				}
			}
			row.Counts.add(f)
			out.Findings = append(out.Findings, f)
		}
		out.Checks = append(out.Checks, row)
	}

	out.Counts = SeverityCounts{}
	for _, f := range out.Findings {
		out.Counts.add(f)
	}
	return out
}

func (c *SeverityCounts) add(f Finding) {
	c.Total++
	if f.Status == StatusAcceptedRisk {
		c.Accepted++
		return
	}
	switch f.Severity {
	case SeverityHigh:
		c.High++
	case SeverityMedium:
		c.Medium++
	case SeverityLow:
		c.Low++
	case SeverityInfo:
		c.Info++
	}
}
