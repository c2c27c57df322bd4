package scoring

import (
	"fmt"

	"github.com/bryanwahyu/secscan/internal/domain/scans"
)

// Policy holds the scoring thresholds. Every field is configurable; the
// defaults reproduce 60 / FAIR / 90+ from the original rubric.
type Policy struct {
	HighBase      int `yaml:"high_base"`       // score with exactly one HIGH finding
	HighPenalty   int `yaml:"high_penalty"`    // per additional HIGH finding
	GoodMaxMedium int `yaml:"good_max_medium"` // most MEDIUM findings still GOOD
	FairMaxMedium int `yaml:"fair_max_medium"` // most MEDIUM findings still FAIR
	MediumPenalty int `yaml:"medium_penalty"`
	LowPenalty    int `yaml:"low_penalty"`
	GoodFloor     int `yaml:"good_floor"`
	FairCeiling   int `yaml:"fair_ceiling"`
	FairFloor     int `yaml:"fair_floor"`
}

// DefaultPolicy returns the documented default thresholds.
func DefaultPolicy() Policy {
	return Policy{
		HighBase:      60,
		HighPenalty:   10,
		GoodMaxMedium: 1,
		FairMaxMedium: 4,
		MediumPenalty: 5,
		LowPenalty:    1,
		GoodFloor:     90,
		FairCeiling:   85,
		FairFloor:     65,
	}
}

// Validate rejects policies that would break monotonicity.
func (p Policy) Validate() error {
	switch {
	case p.HighBase < 0 || p.HighBase > 100:
		return fmt.Errorf("scoring: high_base must be within 0..100, got %d", p.HighBase)
	case p.HighPenalty < 0 || p.MediumPenalty < 0 || p.LowPenalty < 0:
		return fmt.Errorf("scoring: penalties must not be negative")
	case p.GoodMaxMedium < 0 || p.FairMaxMedium < p.GoodMaxMedium:
		return fmt.Errorf("scoring: need 0 <= good_max_medium <= fair_max_medium")
	case p.GoodFloor > 100 || p.FairCeiling >= p.GoodFloor:
		return fmt.Errorf("scoring: fair_ceiling must be below good_floor")
	case p.FairFloor > p.FairCeiling || p.FairFloor <= 0:
		return fmt.Errorf("scoring: need 0 < fair_floor <= fair_ceiling")
	case p.HighBase >= p.GoodFloor:
		return fmt.Errorf("scoring: high_base must be below good_floor")
	}
	return nil
}

// Result of scoring one run.
type Result struct {
	Score            int
	Posture          scans.Posture
	InsufficientData bool
}

// Score maps severity counts to a score and posture. performed is the number
// of checks that actually ran; zero means there is nothing to grade.
func Score(p Policy, c scans.SeverityCounts, performed int) Result {
	if performed == 0 {
		return Result{Score: 0, Posture: scans.PostureNeedsAttention, InsufficientData: true}
	}

	score, posture := p.base(c.Medium, c.Low)
	if c.High > 0 {
		capped := floor(p.HighBase-p.HighPenalty*(c.High-1), 0)
		if capped < score {
			score = capped
		}
		posture = scans.PostureNeedsAttention
	}
	return Result{Score: score, Posture: posture}
}

// base scores a run without HIGH findings.
func (p Policy) base(medium, low int) (int, scans.Posture) {
	switch {
	case medium <= p.GoodMaxMedium:
		return clamp(floor(100-p.MediumPenalty*medium-p.LowPenalty*low, p.GoodFloor)), scans.PostureGood
	case medium <= p.FairMaxMedium:
		over := medium - (p.GoodMaxMedium + 1)
		return floor(p.FairCeiling-p.MediumPenalty*over-p.LowPenalty*low, p.FairFloor), scans.PostureFair
	default:
		over := medium - (p.FairMaxMedium + 1)
		return floor(p.FairFloor-1-p.MediumPenalty*over-p.LowPenalty*low, 0), scans.PostureNeedsAttention
	}
}

// Finalize applies the policy to an aggregated run and returns the scored copy.
func Finalize(p Policy, run scans.ScanRun) scans.ScanRun {
	r := Score(p, run.Counts, len(run.ChecksPerformed))
	run.Score = r.Score
	run.Posture = r.Posture
	run.InsufficientData = r.InsufficientData
	run.Recommendation = Recommendation(r.Posture)
	return run
}

// Recommendation is the fixed advice for a posture.
func Recommendation(p scans.Posture) string {
	switch p {
	case scans.PostureGood:
		return "Security posture is acceptable. Continue monitoring and maintain current controls."
	case scans.PostureFair:
		return "Some security issues detected. Review and address medium severity findings before production."
	default:
		return "High severity or numerous medium severity issues detected. Address critical findings immediately before deployment."
	}
}

func floor(v, min int) int {
	if v < min {
		return min
	}
	return v
}

func clamp(v int) int {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}
