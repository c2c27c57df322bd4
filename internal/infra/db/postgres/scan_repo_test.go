package postgres

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	domain "github.com/bryanwahyu/secscan/internal/domain/scans"
)

func TestScanRepositoryRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	run := domain.NewScanRun("run-9", "demo", time.Date(2024, 12, 9, 10, 0, 0, 0, time.UTC))
	run.ChecksPerformed = []string{domain.CheckControls}
	run.Score = 100
	run.Posture = domain.PostureGood
	doc, _ := json.Marshal(run)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO security_scan_runs")).
		WithArgs("run-9", "demo", run.Timestamp, 100, "GOOD", false,
			0, 0, 0, 0, 0, 0, `["Security Controls Verification"]`, string(doc)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT report_json FROM security_scan_runs WHERE id=$1")).
		WithArgs("run-9").
		WillReturnRows(sqlmock.NewRows([]string{"report_json"}).AddRow(doc))

	repo := NewScanRepository(db)
	if err := repo.Save(context.Background(), &run); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := repo.Get(context.Background(), "run-9")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != "run-9" || got.Posture != domain.PostureGood || !got.Timestamp.Equal(run.Timestamp) {
		t.Errorf("Get = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSkipRepositoryListByRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM security_scan_skips\\s+WHERE run_id = \\$1").
		WithArgs("run-9", 5).
		WillReturnRows(sqlmock.NewRows([]string{"check_name", "reason"}).
			AddRow(domain.CheckStaticAnalysis, "tool unavailable: bandit not found on PATH").
			AddRow(domain.CheckDependencies, "tool unavailable: pip-audit not found on PATH"))

	got, err := NewSkipRepository(db).ListByRun(context.Background(), "run-9", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].Check != domain.CheckDependencies {
		t.Errorf("ListByRun = %+v", got)
	}
}
