package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/secscan/internal/domain/scans"
)

type ScanRepository struct {
	db *sql.DB
}

func NewScanRepository(db *sql.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// Save insert/update ScanRun record. The full run is kept as JSON; the
// scalar columns exist for querying.
func (r *ScanRepository) Save(ctx context.Context, s *domain.ScanRun) error {
	const q = `
INSERT INTO security_scan_runs
(id, project, scanned_at, score, posture, insufficient_data,
 high, medium, low, info, accepted, findings_total,
 checks_performed, report_json)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 score=VALUES(score), posture=VALUES(posture), insufficient_data=VALUES(insufficient_data),
 high=VALUES(high), medium=VALUES(medium), low=VALUES(low), info=VALUES(info),
 accepted=VALUES(accepted), findings_total=VALUES(findings_total),
 checks_performed=VALUES(checks_performed), report_json=VALUES(report_json);
`
	doc, checks, err := encodeRun(s)
	if err != nil {
		return err
	}
	scanned := s.Timestamp
	if scanned.IsZero() {
		scanned = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, q,
		string(s.ID), stringOrDash(s.Project), scanned, s.Score, string(s.Posture), s.InsufficientData,
		s.Counts.High, s.Counts.Medium, s.Counts.Low, s.Counts.Info, s.Counts.Accepted, s.Counts.Total,
		checks, doc,
	)
	return err
}

// Get by ID. Returns sql.ErrNoRows when the run is unknown.
func (r *ScanRepository) Get(ctx context.Context, id domain.RunID) (*domain.ScanRun, error) {
	const q = `SELECT report_json FROM security_scan_runs WHERE id=? LIMIT 1;`

	var doc []byte
	if err := r.db.QueryRowContext(ctx, q, string(id)).Scan(&doc); err != nil {
		return nil, err
	}
	return decodeRun(doc)
}

// Latest runs, newest first
func (r *ScanRepository) Latest(ctx context.Context, limit int) ([]*domain.ScanRun, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT report_json
FROM security_scan_runs
ORDER BY scanned_at DESC, id DESC LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.ScanRun{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		run, err := decodeRun(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// Trend summarizes runs since N days: number of runs, average score and
// the summed HIGH / MEDIUM counts.
func (r *ScanRepository) Trend(ctx context.Context, sinceDays int) (domain.Trend, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := time.Now().UTC().AddDate(0, 0, -sinceDays)

	const q = `
SELECT COUNT(*)                  AS total_runs,
       COALESCE(AVG(score),0)    AS avg_score,
       COALESCE(SUM(high),0)     AS high,
       COALESCE(SUM(medium),0)   AS medium
FROM security_scan_runs
WHERE scanned_at >= ?;
`
	t := domain.Trend{SinceDays: sinceDays}
	if err := r.db.QueryRowContext(ctx, q, cut).Scan(&t.Runs, &t.AvgScore, &t.High, &t.Medium); err != nil {
		return domain.Trend{}, err
	}
	return t, nil
}
