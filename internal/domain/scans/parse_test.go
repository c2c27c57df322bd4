package scans

import (
	"errors"
	"strings"
	"testing"
)

const banditSample = `{
  "errors": [],
  "metrics": {"_totals": {"SEVERITY.HIGH": 1, "SEVERITY.LOW": 1, "loc": 160}},
  "results": [
    {"filename": "src/app.py", "line_number": 150, "issue_severity": "HIGH", "issue_confidence": "MEDIUM",
     "issue_text": "A Flask app appears to be run with debug=True", "test_id": "B201", "test_name": "flask_debug_true"},
    {"filename": "src/test_keys.py", "line_number": 3, "issue_severity": "LOW", "issue_confidence": "HIGH",
     "issue_text": "Consider possible security implications associated with the subprocess module.", "test_id": "B404", "test_name": "blacklist"},
    {"filename": "src/x.py", "line_number": 1, "issue_severity": "UNDEFINED", "issue_confidence": "LOW",
     "issue_text": "odd", "test_id": "B000", "test_name": "odd"}
  ]
}`

func TestParseBanditJSON(t *testing.T) {
	got, err := ParseBanditJSON(CheckStaticAnalysis, []byte(banditSample))
	if err != nil {
		t.Fatalf("ParseBanditJSON: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 3 issues + summary, got %d", len(got))
	}
	if got[0].Severity != SeverityHigh || got[0].Location != "src/app.py:150" || got[0].RuleID != "B201" {
		t.Errorf("unexpected first finding: %+v", got[0])
	}
	if got[1].Severity != SeverityLow {
		t.Errorf("expected LOW, got %s", got[1].Severity)
	}
	if got[2].Severity != Severity("UNDEFINED") {
		t.Errorf("unknown label should pass through for coercion, got %s", got[2].Severity)
	}
	summary := got[3]
	if summary.Severity != SeverityInfo || !strings.Contains(summary.Description, "160 lines") {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestParseBanditJSONMalformed(t *testing.T) {
	for _, in := range []string{"", "not json", `{"errors": []}`} {
		if _, err := ParseBanditJSON(CheckStaticAnalysis, []byte(in)); !errors.Is(err, ErrParse) {
			t.Errorf("input %q: expected ErrParse, got %v", in, err)
		}
	}
}

func TestParsePipAuditJSON(t *testing.T) {
	objectForm := `{"dependencies": [
	  {"name": "flask", "version": "2.0.0", "vulns": [
	    {"id": "PYSEC-2023-62", "fix_versions": ["2.2.5", "2.3.2"], "aliases": ["CVE-2023-30861"], "description": "cookie leak"}
	  ]},
	  {"name": "requests", "version": "2.31.0", "vulns": []},
	  {"name": "local-pkg", "skip_reason": "not on PyPI"}
	], "fixes": []}`
	listForm := `[{"name": "jinja2", "version": "3.0.0", "vulns": [{"id": "GHSA-h5c8", "fix_versions": [], "aliases": []}]}]`

	got, err := ParsePipAuditJSON(CheckDependencies, []byte(objectForm), SeverityHigh)
	if err != nil {
		t.Fatalf("object form: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(got))
	}
	f := got[0]
	if f.Severity != SeverityHigh || f.RuleID != "PYSEC-2023-62" || f.Location != "flask==2.0.0" {
		t.Errorf("unexpected finding %+v", f)
	}
	if !strings.Contains(f.Description, "CVE-2023-30861") || !strings.Contains(f.Description, "fixed in 2.2.5, 2.3.2") {
		t.Errorf("description missing aliases/fixes: %q", f.Description)
	}

	got, err = ParsePipAuditJSON(CheckDependencies, []byte(listForm), SeverityMedium)
	if err != nil {
		t.Fatalf("list form: %v", err)
	}
	if len(got) != 1 || got[0].Severity != SeverityMedium || !strings.Contains(got[0].Description, "no fix available") {
		t.Errorf("unexpected list-form findings %+v", got)
	}
}

func TestParsePipAuditJSONMalformed(t *testing.T) {
	for _, in := range []string{"{", `{"fixes": []}`, "[1,2"} {
		if _, err := ParsePipAuditJSON(CheckDependencies, []byte(in), SeverityHigh); !errors.Is(err, ErrParse) {
			t.Errorf("input %q: expected ErrParse, got %v", in, err)
		}
	}
}

func TestNormalizeSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
		ok   bool
	}{
		{"high", SeverityHigh, true},
		{"CRITICAL", SeverityHigh, true},
		{" Medium ", SeverityMedium, true},
		{"low", SeverityLow, true},
		{"informational", SeverityInfo, true},
		{"UNDEFINED", SeverityLow, false},
		{"", SeverityLow, false},
	}
	for _, tt := range tests {
		got, ok := NormalizeSeverity(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NormalizeSeverity(%q) = %s,%v want %s,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
