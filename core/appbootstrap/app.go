package appbootstrap

import (
	"context"
	"fmt"
	"time"

	"status-service/api"
	"status-service/config"
	"status-service/core/incidents"
	"status-service/core/store"
	"status-service/core/utils"

	"github.com/Songmu/retry"
)

const (
	pingTimeout     = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

type App struct {
	cfg       *config.AppConfig
	logger    *utils.Logger
	db        *store.DB
	server    *api.Server
	generator *incidents.Generator
	workers   []BackgroundWorker
}

// New opens the database, waits for it to answer, applies migrations and
// wires the runtime. The caller owns Close.
func New(ctx context.Context, cfg *config.AppConfig, logger *utils.Logger) (*App, error) {
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := waitForDB(ctx, db, cfg.DB, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	version, err := store.SchemaVersion(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Printf("database ready: %s schema version %d", db.Dialect(), version)
	rt := composeRuntime(cfg, db, logger)
	return &App{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		server:    api.NewServer(cfg, rt.serverDeps, logger),
		generator: rt.generator,
		workers:   rt.workers,
	}, nil
}

func waitForDB(ctx context.Context, db *store.DB, cfg config.DBConfig, logger *utils.Logger) error {
	attempts := cfg.ConnectAttempts
	if attempts == 0 {
		attempts = 1
	}
	attempt := 0
	err := retry.Retry(attempts, cfg.ConnectInterval, func() error {
		attempt++
		if err := ctx.Err(); err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		err := db.Ping(pingCtx)
		if err != nil && logger != nil {
			logger.Warn("database not ready", "attempt", attempt, "of", attempts, "err", err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("database unreachable after %d attempts: %w", attempts, err)
	}
	return nil
}

func (a *App) Server() *api.Server { return a.server }

func (a *App) Generator() *incidents.Generator { return a.generator }

// Run serves HTTP until ctx is cancelled or the listener fails, then drains
// requests and stops background workers.
func (a *App) Run(ctx context.Context) error {
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	for _, w := range a.workers {
		w.StartWithContext(workerCtx)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.server.ListenAndServe()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Printf("shutdown requested")
	case err := <-serveErr:
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Errorf("http shutdown: %v", err)
	}
	for _, w := range a.workers {
		if err := w.StopWithContext(shutdownCtx); err != nil {
			a.logger.Errorf("worker stop: %v", err)
		}
	}
	return runErr
}

func (a *App) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}
