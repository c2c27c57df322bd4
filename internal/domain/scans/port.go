package scans

import "context"

// Checker port: one security check. Run never returns an error; failures are
// reported as a not-ok CheckResult.
type Checker interface {
	Name() string
	Run(ctx context.Context) CheckResult
}

// Executor port (interface untuk eksekusi tool eksternal)
type Executor interface {
	Execute(ctx context.Context, req ToolRequest) ToolOutcome
}

// Repository port (interface untuk persistence riwayat scan)
type Repository interface {
	Save(ctx context.Context, r *ScanRun) error
	Get(ctx context.Context, id RunID) (*ScanRun, error)
	Latest(ctx context.Context, limit int) ([]*ScanRun, error)
}

// SkipRepository records adapters that were skipped, for later auditing.
type SkipRepository interface {
	Save(ctx context.Context, runID RunID, s SkippedCheck) error
	ListByRun(ctx context.Context, runID RunID, limit int) ([]SkippedCheck, error)
}

// ArtifactStore port (interface untuk penyimpanan artefak)
type ArtifactStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}

// TrendRepository is implemented by history stores that can aggregate.
type TrendRepository interface {
	Trend(ctx context.Context, sinceDays int) (Trend, error)
}
