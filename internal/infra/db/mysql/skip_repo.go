package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/bryanwahyu/secscan/internal/domain/scans"
)

// SkipRepository keeps an audit trail of checks that could not run.
type SkipRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSkipRepository(db *sql.DB) *SkipRepository {
	return &SkipRepository{db: db, now: time.Now}
}

func (r *SkipRepository) Save(ctx context.Context, runID domain.RunID, s domain.SkippedCheck) error {
	const q = `
INSERT INTO security_scan_skips
  (run_id, check_name, reason, created_at)
VALUES (?,?,?,?)
`
	reason := s.Reason
	if strings.TrimSpace(reason) == "" {
		reason = "-"
	}
	_, err := r.db.ExecContext(ctx, q, stringOrDash(string(runID)), stringOrDash(s.Check), reason, r.now().UTC())
	return err
}

func (r *SkipRepository) ListByRun(ctx context.Context, runID domain.RunID, limit int) ([]domain.SkippedCheck, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT check_name, reason
FROM security_scan_skips
WHERE run_id = ?
ORDER BY created_at ASC, id ASC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, string(runID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.SkippedCheck{}
	for rows.Next() {
		var s domain.SkippedCheck
		if err := rows.Scan(&s.Check, &s.Reason); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
