package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	workunitservice "hitloop/contexts/annotation-pipeline/workunit-service"
	mturkadapter "hitloop/contexts/annotation-pipeline/workunit-service/adapters/mturk"
	postgresadapter "hitloop/contexts/annotation-pipeline/workunit-service/adapters/postgres"
	"hitloop/internal/platform/config"
	"hitloop/internal/platform/db"
	"hitloop/internal/platform/httpserver"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres       *db.Postgres
	pipeline       workunitservice.Module
	pollInterval   time.Duration
	ingestInterval time.Duration
	logger         *slog.Logger
}

// OpsApp backs the hitloopctl commands. It carries the full module so
// one-shot issuance and poll/ingest cycles run against the same wiring
// the long-lived processes use.
type OpsApp struct {
	Module   workunitservice.Module
	Config   config.Config
	Logger   *slog.Logger
	postgres *db.Postgres
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := postgresadapter.AutoMigrate(pg.DB); err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	// The API never talks to the marketplace; issuance and polling live
	// in the worker and the hitloopctl commands.
	module := workunitservice.NewModule(workunitservice.Dependencies{
		Tasks:         repo,
		WorkUnits:     repo,
		Annotations:   repo,
		Events:        repo,
		Clock:         postgresadapter.SystemClock{},
		IDGen:         postgresadapter.UUIDGenerator{},
		Sandbox:       cfg.Marketplace.Sandbox,
		PublicBaseURL: cfg.PublicBaseURL,
		Logger:        logger,
	})

	server := httpserver.New(module, pg.Ping, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	module, pg, err := buildPipeline(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}

	return &WorkerApp{
		postgres:       pg,
		pipeline:       module,
		pollInterval:   cfg.Worker.PollInterval,
		ingestInterval: cfg.Worker.IngestInterval,
		logger:         logger,
	}, nil
}

func BuildOps(ctx context.Context) (*OpsApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "ops")
	module, pg, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &OpsApp{
		Module:   module,
		Config:   cfg,
		Logger:   logger,
		postgres: pg,
	}, nil
}

// buildPipeline wires the marketplace-facing side of the service:
// postgres store plus the real marketplace client.
func buildPipeline(ctx context.Context, cfg config.Config, logger *slog.Logger) (workunitservice.Module, *db.Postgres, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return workunitservice.Module{}, nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return workunitservice.Module{}, nil, err
	}
	if err := postgresadapter.AutoMigrate(pg.DB); err != nil {
		return workunitservice.Module{}, nil, err
	}

	marketplace, err := mturkadapter.NewClient(ctx, mturkadapter.Config{
		Sandbox:         cfg.Marketplace.Sandbox,
		Region:          cfg.Marketplace.Region,
		Endpoint:        cfg.Marketplace.Endpoint,
		AccessKeyID:     cfg.Marketplace.AccessKeyID,
		SecretAccessKey: cfg.Marketplace.SecretAccessKey,
	})
	if err != nil {
		return workunitservice.Module{}, nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	module := workunitservice.NewModule(workunitservice.Dependencies{
		Tasks:         repo,
		WorkUnits:     repo,
		Annotations:   repo,
		Events:        repo,
		Marketplace:   marketplace,
		Clock:         postgresadapter.SystemClock{},
		IDGen:         postgresadapter.UUIDGenerator{},
		Sandbox:       cfg.Marketplace.Sandbox,
		PublicBaseURL: cfg.PublicBaseURL,
		PollLimit:     cfg.Worker.PollLimit,
		IngestLimit:   cfg.Worker.IngestLimit,
		Logger:        logger,
	})
	return module, pg, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

// Run drives the reconcile and ingest jobs on independent tickers until
// the context is canceled. A job error stops the worker; the process
// supervisor owns restarts.
func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"ingest_interval", w.ingestInterval.String(),
	)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return runLoop(ctx, w.pollInterval, func(ctx context.Context) error {
			_, err := w.pipeline.Reconcile.RunOnce(ctx)
			return err
		})
	})
	group.Go(func() error {
		return runLoop(ctx, w.ingestInterval, func(ctx context.Context) error {
			_, err := w.pipeline.Ingest.RunOnce(ctx)
			return err
		})
	})
	return group.Wait()
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func (o *OpsApp) Close() error {
	if o.postgres != nil {
		return o.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}

func runLoop(ctx context.Context, interval time.Duration, step func(context.Context) error) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := step(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
