package scans

import (
	"time"
)

// RunID tipe untuk ScanRun
type RunID string

// Check names, in the fixed execution order.
const (
	CheckStaticAnalysis = "Static Analysis (bandit)"
	CheckDependencies   = "Dependency Vulnerabilities (pip-audit)"
	CheckConfiguration  = "API Configuration Validation"
	CheckControls       = "Security Controls Verification"
)

// Severity enum
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
	SeverityInfo   Severity = "INFO"
)

// FindingStatus enum
type FindingStatus string

const (
	StatusOpen         FindingStatus = "OPEN"
	StatusAcceptedRisk FindingStatus = "ACCEPTED_RISK"
)

// CheckStatus enum
type CheckStatus string

const (
	CheckCompleted CheckStatus = "COMPLETED"
	CheckSkipped   CheckStatus = "SKIPPED"
)

// Posture enum
type Posture string

const (
	PostureGood           Posture = "GOOD"
	PostureFair           Posture = "FAIR"
	PostureNeedsAttention Posture = "NEEDS ATTENTION"
)

// Finding is one issue reported by a checker.
type Finding struct {
	CheckName   string        `json:"check_name"`
	Severity    Severity      `json:"severity"`
	Description string        `json:"description"`
	Location    string        `json:"location,omitempty"`
	RuleID      string        `json:"rule_id,omitempty"`
	Status      FindingStatus `json:"status"`
}

// SeverityCounts value object. Only OPEN findings are counted per severity.
type SeverityCounts struct {
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
	Accepted int `json:"accepted"`
	Total    int `json:"total"`
}

// CheckSummary is one row of the per-check table.
type CheckSummary struct {
	Name   string         `json:"name"`
	Status CheckStatus    `json:"status"`
	Counts SeverityCounts `json:"counts"`
	Reason string         `json:"reason,omitempty"`
}

// SkippedCheck marks an adapter that could not run.
type SkippedCheck struct {
	Check  string `json:"check"`
	Reason string `json:"reason"`
}

// Aggregate Root: ScanRun
type ScanRun struct {
	ID               RunID          `json:"id"`
	Project          string         `json:"project"`
	Timestamp        time.Time      `json:"timestamp"`
	ChecksPerformed  []string       `json:"checks_performed"`
	SkippedChecks    []SkippedCheck `json:"skipped_checks"`
	Checks           []CheckSummary `json:"checks"`
	Findings         []Finding      `json:"findings"`
	Counts           SeverityCounts `json:"counts"`
	Score            int            `json:"score"`
	Posture          Posture        `json:"posture"`
	InsufficientData bool           `json:"insufficient_data"`
	Recommendation   string         `json:"recommendation"`
	Warnings         []string       `json:"warnings,omitempty"`
}

// NewScanRun starts an empty run. Slices are non-nil so the JSON form is stable.
func NewScanRun(id RunID, project string, at time.Time) ScanRun {
	return ScanRun{
		ID:              id,
		Project:         project,
		Timestamp:       at.UTC(),
		ChecksPerformed: []string{},
		SkippedChecks:   []SkippedCheck{},
		Checks:          []CheckSummary{},
		Findings:        []Finding{},
	}
}

// Skipped reports whether the named check was skipped in this run.
func (r ScanRun) Skipped(check string) bool {
	for _, s := range r.SkippedChecks {
		if s.Check == check {
			return true
		}
	}
	return false
}

// Trend summarizes stored runs over a time window.
type Trend struct {
	SinceDays int     `json:"since_days"`
	Runs      int     `json:"runs"`
	AvgScore  float64 `json:"avg_score"`
	High      int     `json:"high"`
	Medium    int     `json:"medium"`
}
