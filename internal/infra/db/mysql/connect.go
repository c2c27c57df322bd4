package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
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
  id                VARCHAR(64)  NOT NULL PRIMARY KEY,
  project           VARCHAR(255) NOT NULL,
  scanned_at        DATETIME(3)  NOT NULL,
  score             INT          NOT NULL,
  posture           VARCHAR(32)  NOT NULL,
  insufficient_data BOOLEAN      NOT NULL DEFAULT FALSE,
  high              INT          NOT NULL DEFAULT 0,
  medium            INT          NOT NULL DEFAULT 0,
  low               INT          NOT NULL DEFAULT 0,
  info              INT          NOT NULL DEFAULT 0,
  accepted          INT          NOT NULL DEFAULT 0,
  findings_total    INT          NOT NULL DEFAULT 0,
  checks_performed  JSON         NOT NULL,
  report_json       JSON         NOT NULL,
  INDEX idx_scan_runs_scanned_at (scanned_at)
);
CREATE TABLE IF NOT EXISTS security_scan_skips (
  id         BIGINT AUTO_INCREMENT PRIMARY KEY,
  run_id     VARCHAR(64)  NOT NULL,
  check_name VARCHAR(255) NOT NULL,
  reason     TEXT         NOT NULL,
  created_at DATETIME(3)  NOT NULL,
  INDEX idx_scan_skips_run (run_id)
);`

// Migrate creates the history tables when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range splitStatements(schema) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
