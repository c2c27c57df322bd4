package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bryanwahyu/secscan/internal/application"
	appai "github.com/bryanwahyu/secscan/internal/application/ai"
	appscans "github.com/bryanwahyu/secscan/internal/application/scans"
	"github.com/bryanwahyu/secscan/internal/config"
	domain "github.com/bryanwahyu/secscan/internal/domain/scans"
	"github.com/bryanwahyu/secscan/internal/infra/ai/openai"
	"github.com/bryanwahyu/secscan/internal/infra/checkers"
	mysqlp "github.com/bryanwahyu/secscan/internal/infra/db/mysql"
	"github.com/bryanwahyu/secscan/internal/infra/db/postgres"
	"github.com/bryanwahyu/secscan/internal/infra/executor"
	minioStore "github.com/bryanwahyu/secscan/internal/infra/storage"
	"github.com/bryanwahyu/secscan/internal/logger"
)

// app holds the wired service and whatever must be closed afterwards.
type app struct {
	cfg *config.Config
	log *logger.Logger
	svc *appscans.Service
	db  *sql.DB
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// buildCheckers returns the four checks in their fixed order.
func buildCheckers(cfg *config.Config, exec domain.Executor, env checkers.Env) []domain.Checker {
	return []domain.Checker{
		checkers.NewStaticAnalysis(exec, cfg.StaticAnalysis, env),
		checkers.NewDependencies(exec, cfg.Dependencies, env),
		checkers.NewConfiguration(cfg.Rules, env),
		checkers.NewControls(cfg.Controls, env),
	}
}

// newApp wires the scan service. Optional backends (database, MinIO, OpenAI)
// that fail to initialise are logged and left out.
func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) *app {
	runner := executor.NewRunner(cfg.Executor.Mode, cfg.Root)
	env := checkers.Env{Root: cfg.Root, ReportDir: cfg.ReportPath(), Log: log}
	replay := env
	replay.Replay = true

	svc := &appscans.Service{
		Checkers:  buildCheckers(cfg, runner, env),
		Replay:    buildCheckers(cfg, runner, replay),
		Policy:    cfg.Scoring,
		Accepted:  cfg.AcceptedRisks,
		Project:   cfg.Project,
		ReportDir: cfg.ReportPath(),
		Clock:     application.SystemClock{},
		Log:       log,
	}
	a := &app{cfg: cfg, log: log, svc: svc}

	if cfg.Database.Driver != "" {
		if err := a.connectHistory(ctx); err != nil {
			log.Warnf("history disabled: %v", err)
		}
	}

	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Warnf("artifact upload disabled: %v", err)
		} else {
			svc.Artifacts = store
		}
	}

	if cfg.OpenAI.APIKey != "" {
		svc.Reviewer = appai.NewService(openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model))
	}
	return a
}

func (a *app) connectHistory(ctx context.Context) error {
	dsn := a.cfg.DSN()
	switch a.cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, dsn)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		if err := mysqlp.Migrate(ctx, db); err != nil {
			db.Close()
			return fmt.Errorf("mysql migrate: %w", err)
		}
		a.db = db
		a.svc.Repo = mysqlp.NewScanRepository(db)
		a.svc.Skips = mysqlp.NewSkipRepository(db)
	case "postgres":
		db, err := postgres.Connect(ctx, dsn)
		if err != nil {
			return fmt.Errorf("postgres connect: %w", err)
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return fmt.Errorf("postgres migrate: %w", err)
		}
		a.db = db
		a.svc.Repo = postgres.NewScanRepository(db)
		a.svc.Skips = postgres.NewSkipRepository(db)
	default:
		return fmt.Errorf("unknown driver %q", a.cfg.Database.Driver)
	}
	a.log.Debugf("history enabled (%s)", a.cfg.Database.Driver)
	return nil
}
