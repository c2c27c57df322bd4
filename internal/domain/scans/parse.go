package scans

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// NormalizeSeverity maps a tool's own severity label onto the four-level enum.
// ok is false when the label is not recognised.
func NormalizeSeverity(raw string) (Severity, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CRITICAL", "HIGH", "ERROR":
		return SeverityHigh, true
	case "MEDIUM", "MODERATE", "WARNING":
		return SeverityMedium, true
	case "LOW", "NOTE":
		return SeverityLow, true
	case "INFO", "INFORMATIONAL":
		return SeverityInfo, true
	default:
		return SeverityLow, false
	}
}

// mapSeverity keeps unknown labels verbatim so the aggregator can coerce and warn.
func mapSeverity(raw string) Severity {
	if s, ok := NormalizeSeverity(raw); ok {
		return s
	}
	return Severity(strings.ToUpper(strings.TrimSpace(raw)))
}

type banditReport struct {
	Results *[]struct {
		Filename        string `json:"filename"`
		LineNumber      int    `json:"line_number"`
		IssueSeverity   string `json:"issue_severity"`
		IssueConfidence string `json:"issue_confidence"`
		IssueText       string `json:"issue_text"`
		TestID          string `json:"test_id"`
		TestName        string `json:"test_name"`
	} `json:"results"`
	Metrics map[string]map[string]any `json:"metrics"`
}

// ParseBanditJSON turns bandit's `-f json` output into findings. The last
// finding is an INFO summary with the issue and line totals.
func ParseBanditJSON(check string, data []byte) ([]Finding, error) {
	var doc banditReport
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: bandit: %v", ErrParse, err)
	}
	if doc.Results == nil {
		return nil, fmt.Errorf("%w: bandit: missing results", ErrParse)
	}

	findings := make([]Finding, 0, len(*doc.Results)+1)
	for _, r := range *doc.Results {
		desc := r.IssueText
		if r.TestName != "" {
			desc = fmt.Sprintf("%s (%s, confidence %s)", r.IssueText, r.TestName, strings.ToUpper(r.IssueConfidence))
		}
		findings = append(findings, Finding{
			CheckName:   check,
			Severity:    mapSeverity(r.IssueSeverity),
			Description: desc,
			Location:    fmt.Sprintf("%s:%d", r.Filename, r.LineNumber),
			RuleID:      r.TestID,
			Status:      StatusOpen,
		})
	}

	loc := 0
	if totals, ok := doc.Metrics["_totals"]; ok {
		if v, ok := totals["loc"].(float64); ok {
			loc = int(v)
		}
	}
	findings = append(findings, Finding{
		CheckName:   check,
		Severity:    SeverityInfo,
		Description: fmt.Sprintf("%d issues reported across %d lines of code", len(*doc.Results), loc),
		Status:      StatusOpen,
	})
	return findings, nil
}

type pipAuditDependency struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	SkipReason string `json:"skip_reason"`
	Vulns      []struct {
		ID          string   `json:"id"`
		FixVersions []string `json:"fix_versions"`
		Aliases     []string `json:"aliases"`
		Description string   `json:"description"`
	} `json:"vulns"`
}

// ParsePipAuditJSON turns pip-audit's `-f json` output into one finding per
// vulnerability. Both the object form ({"dependencies": [...]}) and the older
// bare-list form are accepted.
func ParsePipAuditJSON(check string, data []byte, sev Severity) ([]Finding, error) {
	var deps []pipAuditDependency
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		if err := json.Unmarshal(trimmed, &deps); err != nil {
			return nil, fmt.Errorf("%w: pip-audit: %v", ErrParse, err)
		}
	} else {
		var doc struct {
			Dependencies *[]pipAuditDependency `json:"dependencies"`
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("%w: pip-audit: %v", ErrParse, err)
		}
		if doc.Dependencies == nil {
			return nil, fmt.Errorf("%w: pip-audit: missing dependencies", ErrParse)
		}
		deps = *doc.Dependencies
	}

	findings := make([]Finding, 0)
	for _, d := range deps {
		if d.SkipReason != "" {
			continue
		}
		for _, v := range d.Vulns {
			desc := fmt.Sprintf("%s %s is affected by %s", d.Name, d.Version, v.ID)
			if len(v.Aliases) > 0 {
				desc += " (" + strings.Join(v.Aliases, ", ") + ")"
			}
			if len(v.FixVersions) > 0 {
				desc += "; fixed in " + strings.Join(v.FixVersions, ", ")
			} else {
				desc += "; no fix available"
			}
			findings = append(findings, Finding{
				CheckName:   check,
				Severity:    sev,
				Description: desc,
				Location:    d.Name + "==" + d.Version,
				RuleID:      v.ID,
				Status:      StatusOpen,
			})
		}
	}
	return findings, nil
}
