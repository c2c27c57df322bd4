package scans

// Diff is the result of comparing a run against a saved baseline run.
type Diff struct {
	New        []Finding `json:"new"`
	Fixed      []Finding `json:"fixed"`
	Unchanged  []Finding `json:"unchanged"`
	ScoreDelta int       `json:"score_delta"`
}

func findingKey(f Finding) string {
	return f.CheckName + "|" + f.RuleID + "|" + f.Location + "|" + f.Description
}

// Compare classifies current findings against baseline. INFO findings are
// summaries and are left out. Order follows the run that owns each finding.
func Compare(baseline, current ScanRun) Diff {
	base := make(map[string]struct{}, len(baseline.Findings))
	for _, f := range baseline.Findings {
		if f.Severity != SeverityInfo {
			base[findingKey(f)] = struct{}{}
		}
	}
	curr := make(map[string]struct{}, len(current.Findings))
	d := Diff{ScoreDelta: current.Score - baseline.Score}
	for _, f := range current.Findings {
		if f.Severity == SeverityInfo {
			continue
		}
		k := findingKey(f)
		curr[k] = struct{}{}
		if _, ok := base[k]; ok {
			d.Unchanged = append(d.Unchanged, f)
		} else {
			d.New = append(d.New, f)
		}
	}
	for _, f := range baseline.Findings {
		if f.Severity == SeverityInfo {
			continue
		}
		if _, ok := curr[findingKey(f)]; !ok {
			d.Fixed = append(d.Fixed, f)
		}
	}
	return d
}
