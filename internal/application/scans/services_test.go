package scans

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bryanwahyu/secscan/internal/application"
	domain "github.com/bryanwahyu/secscan/internal/domain/scans"
	"github.com/bryanwahyu/secscan/internal/domain/scoring"
	"github.com/bryanwahyu/secscan/internal/infra/report"
	"github.com/bryanwahyu/secscan/internal/logger"
)

type stubChecker struct {
	name string
	res  domain.CheckResult
}

func (s stubChecker) Name() string { return s.name }
func (s stubChecker) Run(context.Context) domain.CheckResult { return s.res }

func ok(name string, findings ...domain.Finding) stubChecker {
	return stubChecker{name: name, res: domain.CheckResult{Check: name, OK: true, Findings: findings}}
}

func skipped(name string, err error) stubChecker {
	return stubChecker{name: name, res: domain.Skip(name, err)}
}

func f(check string, sev domain.Severity, desc string) domain.Finding {
	return domain.Finding{CheckName: check, Severity: sev, Description: desc, Status: domain.StatusOpen}
}

type memRepo struct {
	mu   sync.Mutex
	runs []*domain.ScanRun
	err  error
}

func (m *memRepo) Save(_ context.Context, r *domain.ScanRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, r)
	return nil
}
func (m *memRepo) Get(context.Context, domain.RunID) (*domain.ScanRun, error) { return nil, nil }
func (m *memRepo) Latest(context.Context, int) ([]*domain.ScanRun, error) { return m.runs, nil }

type memSkips struct{ saved []domain.SkippedCheck }

func (m *memSkips) Save(_ context.Context, _ domain.RunID, s domain.SkippedCheck) error {
	m.saved = append(m.saved, s)
	return nil
}
func (m *memSkips) ListByRun(context.Context, domain.RunID, int) ([]domain.SkippedCheck, error) {
	return m.saved, nil
}

type memArtifacts struct{ keys []string }

func (m *memArtifacts) Upload(_ context.Context, localPath, key string) (string, error) {
	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}
	m.keys = append(m.keys, key)
	return "https://minio.local/reports/" + key, nil
}

type stubReviewer struct{ err error }

func (s stubReviewer) Review(context.Context, domain.ScanRun) (string, error) {
	return "# Security Advice\n", s.err
}

func newService(t *testing.T, checkers ...domain.Checker) *Service {
	t.Helper()
	return &Service{
		Checkers:  checkers,
		Policy:    scoring.DefaultPolicy(),
		Project:   "LLM Guardrails Demo API",
		ReportDir: filepath.Join(t.TempDir(), "security-reports"),
		Clock:     application.FixedClock{T: time.Date(2024, 12, 9, 10, 0, 0, 0, time.UTC)},
		Log:       logger.Discard(),
	}
}

func TestRunScenario(t *testing.T) {
	raw := []byte(`{"results": []}`)
	static := ok(domain.CheckStaticAnalysis, f(domain.CheckStaticAnalysis, domain.SeverityHigh, "debug=True"))
	static.res.RawName = "bandit_report.json"
	static.res.Raw = raw
	svc := newService(t,
		static,
		ok(domain.CheckDependencies),
		ok(domain.CheckConfiguration,
			f(domain.CheckConfiguration, domain.SeverityMedium, "Missing .env"),
			f(domain.CheckConfiguration, domain.SeverityMedium, "bind all")),
		ok(domain.CheckControls),
	)

	var stages []string
	svc.OnStage = func(st Stage, _ string) { stages = append(stages, string(st)) }

	res, err := svc.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	run := res.Run
	if run.Score != 60 || run.Posture != domain.PostureNeedsAttention {
		t.Errorf("score = %d %s, want 60 NEEDS ATTENTION", run.Score, run.Posture)
	}
	if len(run.ChecksPerformed) != 4 {
		t.Errorf("checks performed = %v", run.ChecksPerformed)
	}
	want := "INIT,RUNNING,RUNNING,RUNNING,RUNNING,AGGREGATED,SCORED,RENDERED,DONE"
	if got := strings.Join(stages, ","); got != want {
		t.Errorf("stages = %s\nwant     %s", got, want)
	}

	for _, name := range []string{report.SummaryJSON, report.SummaryMD, "bandit_report.json"} {
		if _, err := os.Stat(filepath.Join(res.ReportDir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	var onDisk domain.ScanRun
	data, _ := os.ReadFile(filepath.Join(res.ReportDir, report.SummaryJSON))
	if err := json.Unmarshal(data, &onDisk); err != nil || onDisk.ID != run.ID || onDisk.Score != 60 {
		t.Errorf("summary on disk = %+v, %v", onDisk, err)
	}
}

func TestRunStaticAnalysisUnavailable(t *testing.T) {
	svc := newService(t,
		skipped(domain.CheckStaticAnalysis, domain.ErrToolUnavailable),
		ok(domain.CheckDependencies),
		ok(domain.CheckConfiguration),
		ok(domain.CheckControls),
	)
	res, err := svc.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Run.Skipped(domain.CheckStaticAnalysis) || len(res.Run.ChecksPerformed) != 3 {
		t.Errorf("run = %+v", res.Run)
	}
	if res.Run.Score != 100 || res.Run.Posture != domain.PostureGood {
		t.Errorf("score = %d %s", res.Run.Score, res.Run.Posture)
	}
	if _, err := os.Stat(filepath.Join(res.ReportDir, "bandit_report.json")); err == nil {
		t.Error("raw report written for a skipped check")
	}
}

func TestRunAllSkipped(t *testing.T) {
	svc := newService(t,
		skipped(domain.CheckStaticAnalysis, domain.ErrToolUnavailable),
		skipped(domain.CheckDependencies, domain.ErrToolUnavailable),
	)
	res, err := svc.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Run.InsufficientData || res.Run.Posture != domain.PostureNeedsAttention || res.Run.Score != 0 {
		t.Errorf("run = %d %s insufficient=%v", res.Run.Score, res.Run.Posture, res.Run.InsufficientData)
	}
}

func TestRunExportOnlyUsesReplay(t *testing.T) {
	svc := newService(t, ok(domain.CheckStaticAnalysis, f(domain.CheckStaticAnalysis, domain.SeverityHigh, "live")))
	svc.Replay = []domain.Checker{ok(domain.CheckStaticAnalysis, f(domain.CheckStaticAnalysis, domain.SeverityLow, "replayed"))}

	res, err := svc.Run(context.Background(), RunOptions{ExportOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Run.Findings) != 1 || res.Run.Findings[0].Description != "replayed" {
		t.Errorf("findings = %+v", res.Run.Findings)
	}
}

func TestRunWriteFailureIsFatal(t *testing.T) {
	svc := newService(t, ok(domain.CheckControls))
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	svc.ReportDir = filepath.Join(blocker, "reports")
	repo := &memRepo{}
	svc.Repo = repo

	if _, err := svc.Run(context.Background(), RunOptions{}); err == nil {
		t.Fatal("expected fatal error")
	}
	if len(repo.runs) != 0 {
		t.Error("history saved for a run whose reports were not written")
	}
}

func TestRunPostStepsAreNonFatal(t *testing.T) {
	svc := newService(t, skipped(domain.CheckDependencies, domain.ErrToolUnavailable), ok(domain.CheckControls))
	svc.Repo = &memRepo{err: errors.New("db down")}
	skips := &memSkips{}
	svc.Skips = skips
	artifacts := &memArtifacts{}
	svc.Artifacts = artifacts
	svc.Reviewer = stubReviewer{}

	res, err := svc.Run(context.Background(), RunOptions{AIReview: true})
	if err != nil {
		t.Fatalf("post-step failure leaked: %v", err)
	}
	if len(skips.saved) != 1 || skips.saved[0].Check != domain.CheckDependencies {
		t.Errorf("skips = %+v", skips.saved)
	}
	if res.Advice == "" {
		t.Error("advice missing")
	}
	if _, err := os.Stat(filepath.Join(res.ReportDir, report.AdviceMD)); err != nil {
		t.Errorf("advice not written: %v", err)
	}
	if len(artifacts.keys) != 3 || !strings.HasPrefix(artifacts.keys[0], "llm-guardrails-demo-api/"+string(res.Run.ID)+"/") {
		t.Errorf("uploaded keys = %v", artifacts.keys)
	}

	svc.Reviewer = stubReviewer{err: errors.New("quota")}
	if _, err := svc.Run(context.Background(), RunOptions{AIReview: true}); err != nil {
		t.Fatalf("AI failure leaked: %v", err)
	}
}

func TestRunSerialized(t *testing.T) {
	var mu sync.Mutex
	active, maxActive := 0, 0
	gate := gateChecker{enter: func() {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
	}}
	svc := newService(t, gate)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Run(context.Background(), RunOptions{})
		}()
	}
	wg.Wait()
	if maxActive != 1 {
		t.Errorf("runs overlapped: %d concurrent", maxActive)
	}
}

type gateChecker struct{ enter func() }

func (g gateChecker) Name() string { return domain.CheckControls }
func (g gateChecker) Run(context.Context) domain.CheckResult {
	g.enter()
	return domain.CheckResult{Check: domain.CheckControls, OK: true}
}

func TestHistoryDisabled(t *testing.T) {
	svc := newService(t)
	if _, err := svc.Latest(context.Background(), 5); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("Latest err = %v", err)
	}
	if _, err := svc.Get(context.Background(), "x"); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("Get err = %v", err)
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"LLM Guardrails Demo API": "llm-guardrails-demo-api",
		"  --  ":                  "project",
		"api_v2!":                 "api-v2",
	}
	for in, want := range tests {
		if got := slug(in); got != want {
			t.Errorf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}

// ctxChecker finishes only while the context is alive, like the real adapters.
type ctxChecker struct{ name string }

func (c ctxChecker) Name() string { return c.name }
func (c ctxChecker) Run(ctx context.Context) domain.CheckResult {
	if err := ctx.Err(); err != nil {
		return domain.Skip(c.name, err)
	}
	return domain.CheckResult{Check: c.name, OK: true}
}

func TestRunCancelledKeepsPreviousReports(t *testing.T) {
	svc := newService(t,
		skipped(domain.CheckStaticAnalysis, domain.ErrToolFailed),
		ctxChecker{name: domain.CheckConfiguration},
		ok(domain.CheckControls),
	)
	repo := &memRepo{}
	svc.Repo = repo

	if err := os.MkdirAll(svc.ReportDir, 0o755); err != nil {
		t.Fatal(err)
	}
	previous := map[string]string{
		report.SummaryJSON:   `{"score":60}`,
		report.SummaryMD:     "# previous",
		"bandit_report.json": `{"results": []}`,
	}
	for name, body := range previous {
		if err := os.WriteFile(filepath.Join(svc.ReportDir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Run(ctx, RunOptions{})
	if !errors.Is(err, ErrInterrupted) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want ErrInterrupted wrapping context.Canceled", err)
	}
	for name, body := range previous {
		got, err := os.ReadFile(filepath.Join(svc.ReportDir, name))
		if err != nil || string(got) != body {
			t.Errorf("%s changed by an interrupted run: %q, %v", name, got, err)
		}
	}
	if len(repo.runs) != 0 {
		t.Error("interrupted run saved to history")
	}
}

func TestRunRemovesStaleCaptureOfSkippedTool(t *testing.T) {
	stale := skipped(domain.CheckStaticAnalysis, domain.ErrToolUnavailable)
	stale.res.RawName = "bandit_report.json"
	svc := newService(t, stale, ok(domain.CheckControls))

	if err := os.MkdirAll(svc.ReportDir, 0o755); err != nil {
		t.Fatal(err)
	}
	rawPath := filepath.Join(svc.ReportDir, "bandit_report.json")
	if err := os.WriteFile(rawPath, []byte(`{"results": []}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Run(context.Background(), RunOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(rawPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("capture from an earlier run still present: %v", err)
	}
}
