package scans

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/secscan/internal/application"
	domain "github.com/bryanwahyu/secscan/internal/domain/scans"
	"github.com/bryanwahyu/secscan/internal/domain/scoring"
	"github.com/bryanwahyu/secscan/internal/infra/report"
	"github.com/bryanwahyu/secscan/internal/logger"
)

// Stage of one orchestrated run.
type Stage string

const (
	StageInit       Stage = "INIT"
	StageRunning    Stage = "RUNNING"
	StageAggregated Stage = "AGGREGATED"
	StageScored     Stage = "SCORED"
	StageRendered   Stage = "RENDERED"
	StageDone       Stage = "DONE"
)

// Reviewer is the optional AI review step.
type Reviewer interface {
	Review(ctx context.Context, run domain.ScanRun) (string, error)
}

// Service implements use-cases untuk Scan. Run is safe to call from several
// goroutines; calls are serialized so two scans never overlap.
type Service struct {
	Checkers  []domain.Checker // fixed order: static, dependencies, config, controls
	Replay    []domain.Checker // export-only variants of Checkers
	Policy    scoring.Policy
	Accepted  []domain.AcceptedRisk
	Project   string
	ReportDir string
	Clock     application.Clock
	Log       *logger.Logger

	// optional post-steps; nil disables them
	Repo      domain.Repository
	Skips     domain.SkipRepository
	Artifacts domain.ArtifactStore
	Reviewer  Reviewer

	// OnStage observes stage transitions; detail names the check for RUNNING.
	OnStage func(stage Stage, detail string)

	mu sync.Mutex
}

// RunOptions untuk satu kali scan
type RunOptions struct {
	ExportOnly bool // re-parse captured tool output instead of running tools
	AIReview   bool
}

// RunResult is the finished run plus where its reports were written.
type RunResult struct {
	Run          domain.ScanRun `json:"run"`
	ReportDir    string         `json:"report_dir"`
	ArtifactURLs []string       `json:"artifact_urls,omitempty"`
	Advice       string         `json:"advice,omitempty"`
}

// Run executes every check once, aggregates, scores and writes the reports.
// Only a failure to write the reports is returned as an error; everything
// else degrades into skipped checks or logged warnings.
func (s *Service) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := domain.RunID(uuid.New().String())
	s.stage(StageInit, string(id))
	run := domain.NewScanRun(id, s.Project, s.now())

	checkers := s.Checkers
	if opts.ExportOnly {
		checkers = s.Replay
	}

	// jalankan checker satu per satu, tanpa retry
	results := make([]domain.CheckResult, 0, len(checkers))
	for _, c := range checkers {
		s.stage(StageRunning, c.Name())
		res := c.Run(ctx)
		if res.Check == "" {
			res.Check = c.Name()
		}
		if res.OK {
			s.Log.Infof("✓ %s completed (%d findings)", res.Check, len(res.Findings))
		} else {
			s.Log.Warnf("✗ %s skipped: %s", res.Check, res.Reason)
		}
		results = append(results, res)
	}

	// run yang terputus tidak boleh menimpa report sebelumnya
	if err := ctx.Err(); err != nil {
		s.Log.Errorf("scan interrupted, previous reports left untouched: %v", err)
		return RunResult{Run: run}, fmt.Errorf("%w: %w", ErrInterrupted, err)
	}

	run = domain.Aggregate(run, results, s.Accepted)
	s.stage(StageAggregated, "")
	for _, w := range run.Warnings {
		s.Log.Warnf("%s", w)
	}

	run = scoring.Finalize(s.Policy, run)
	s.stage(StageScored, fmt.Sprintf("%d %s", run.Score, run.Posture))

	files, err := s.render(run, results)
	if err != nil {
		return RunResult{Run: run}, err
	}
	if err := report.WriteReports(s.ReportDir, files); err != nil {
		s.Log.Errorf("report write failed: %v", err)
		return RunResult{Run: run}, err
	}
	// capture dari run lama tidak boleh di-replay sebagai hasil terbaru
	var stale []string
	for _, res := range results {
		if !res.OK && res.RawName != "" {
			stale = append(stale, res.RawName)
		}
	}
	if err := report.RemoveStale(s.ReportDir, stale...); err != nil {
		s.Log.Warnf("stale raw output not removed: %v", err)
	}
	s.stage(StageRendered, s.ReportDir)
	s.stage(StageDone, string(id))

	out := RunResult{Run: run, ReportDir: s.ReportDir}
	s.postSteps(ctx, opts, &out, files)
	return out, nil
}

func (s *Service) render(run domain.ScanRun, results []domain.CheckResult) ([]report.File, error) {
	r, err := report.Render(run)
	if err != nil {
		return nil, err
	}
	files := make([]report.File, 0, len(results)+2)
	for _, res := range results {
		if res.OK && res.RawName != "" {
			files = append(files, report.File{Name: res.RawName, Data: res.Raw})
		}
	}
	return append(files,
		report.File{Name: report.SummaryJSON, Data: r.JSON},
		report.File{Name: report.SummaryMD, Data: r.Markdown},
	), nil
}

// postSteps run after DONE. Their failures never fail the scan.
func (s *Service) postSteps(ctx context.Context, opts RunOptions, out *RunResult, files []report.File) {
	run := out.Run

	if s.Repo != nil {
		if err := s.Repo.Save(ctx, &run); err != nil {
			s.Log.Warnf("history save failed: %v", err)
		}
	}
	if s.Skips != nil {
		for _, sk := range run.SkippedChecks {
			if err := s.Skips.Save(ctx, run.ID, sk); err != nil {
				s.Log.Warnf("skip record failed for %s: %v", sk.Check, err)
			}
		}
	}

	if opts.AIReview && s.Reviewer != nil {
		advice, err := s.Reviewer.Review(ctx, run)
		if err != nil {
			s.Log.Warnf("AI review failed: %v", err)
		} else {
			out.Advice = advice
			f := report.File{Name: report.AdviceMD, Data: []byte(advice)}
			if err := report.WriteReports(s.ReportDir, []report.File{f}); err != nil {
				s.Log.Warnf("advice write failed: %v", err)
			} else {
				files = append(files, f)
			}
		}
	}

	if s.Artifacts != nil {
		for _, f := range files {
			// key format: <project>/<run id>/<file>
			key := fmt.Sprintf("%s/%s/%s", slug(s.Project), run.ID, f.Name)
			url, err := s.Artifacts.Upload(ctx, filepath.Join(s.ReportDir, f.Name), key)
			if err != nil {
				s.Log.Warnf("artifact upload failed for %s: %v", f.Name, err)
				continue
			}
			out.ArtifactURLs = append(out.ArtifactURLs, url)
		}
	}
}

func (s *Service) stage(st Stage, detail string) {
	if detail != "" {
		s.Log.Debugf("stage=%s %s", st, detail)
	} else {
		s.Log.Debugf("stage=%s", st)
	}
	if s.OnStage != nil {
		s.OnStage(st, detail)
	}
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

func slug(project string) string {
	out := make([]rune, 0, len(project))
	for _, r := range project {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case len(out) > 0 && out[len(out)-1] != '-':
			out = append(out, '-')
		}
	}
	if len(out) > 0 && out[len(out)-1] == '-' {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return "project"
	}
	return string(out)
}

// Latest returns recent runs from history. It errors when history is off.
func (s *Service) Latest(ctx context.Context, limit int) ([]*domain.ScanRun, error) {
	if s.Repo == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.Repo.Latest(ctx, limit)
}

// Get returns one run from history.
func (s *Service) Get(ctx context.Context, id domain.RunID) (*domain.ScanRun, error) {
	if s.Repo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.Repo.Get(ctx, id)
}

// LastReport reads the most recent summary from the report directory.
func (s *Service) LastReport() (*domain.ScanRun, error) {
	return report.ReadRun(filepath.Join(s.ReportDir, report.SummaryJSON))
}

// Trend aggregates recent history when the store supports it.
func (s *Service) Trend(ctx context.Context, sinceDays int) (domain.Trend, error) {
	tr, ok := s.Repo.(domain.TrendRepository)
	if !ok {
		return domain.Trend{}, ErrHistoryDisabled
	}
	return tr.Trend(ctx, sinceDays)
}

// SkippedFor lists the checks recorded as skipped for one run.
func (s *Service) SkippedFor(ctx context.Context, id domain.RunID) ([]domain.SkippedCheck, error) {
	if s.Skips == nil {
		return nil, ErrHistoryDisabled
	}
	return s.Skips.ListByRun(ctx, id, 20)
}
