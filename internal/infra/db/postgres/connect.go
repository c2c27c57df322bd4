package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS security_scan_runs (
  id                TEXT PRIMARY KEY,
  project           TEXT        NOT NULL,
  scanned_at        TIMESTAMPTZ NOT NULL,
  score             INT         NOT NULL,
  posture           TEXT        NOT NULL,
  insufficient_data BOOLEAN     NOT NULL DEFAULT FALSE,
  high              INT         NOT NULL DEFAULT 0,
  medium            INT         NOT NULL DEFAULT 0,
  low               INT         NOT NULL DEFAULT 0,
  info              INT         NOT NULL DEFAULT 0,
  accepted          INT         NOT NULL DEFAULT 0,
  findings_total    INT         NOT NULL DEFAULT 0,
  checks_performed  JSONB       NOT NULL,
  report_json       JSONB       NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scan_runs_scanned_at ON security_scan_runs (scanned_at);
CREATE TABLE IF NOT EXISTS security_scan_skips (
  id         BIGSERIAL PRIMARY KEY,
  run_id     TEXT        NOT NULL,
  check_name TEXT        NOT NULL,
  reason     TEXT        NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scan_skips_run ON security_scan_skips (run_id);`

// Migrate creates the history tables when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
