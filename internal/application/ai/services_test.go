package ai

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	domain "github.com/bryanwahyu/secscan/internal/domain/scans"
)

type fakeReviewer struct{ got []byte }

func (f *fakeReviewer) Review(_ context.Context, summary []byte) (string, error) {
	f.got = summary
	return "# Security Advice\n", nil
}

func TestReviewDropsInfoFindings(t *testing.T) {
	run := domain.NewScanRun("r1", "demo", time.Date(2024, 12, 9, 0, 0, 0, 0, time.UTC))
	run.Findings = []domain.Finding{
		{CheckName: domain.CheckStaticAnalysis, Severity: domain.SeverityInfo, Description: "3 issues"},
		{CheckName: domain.CheckConfiguration, Severity: domain.SeverityHigh, Description: "debug on"},
	}
	fake := &fakeReviewer{}

	md, err := NewService(fake).Review(context.Background(), run)
	if err != nil || md == "" {
		t.Fatalf("Review = %q, %v", md, err)
	}
	var sent domain.ScanRun
	if err := json.Unmarshal(fake.got, &sent); err != nil {
		t.Fatal(err)
	}
	if len(sent.Findings) != 1 || sent.Findings[0].Description != "debug on" {
		t.Errorf("payload findings = %+v", sent.Findings)
	}
	if len(run.Findings) != 2 {
		t.Error("Review modified the caller's run")
	}
}
