package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/avkuzmin/predictq/internal/config"
	"github.com/avkuzmin/predictq/internal/platform/logger"
	"github.com/avkuzmin/predictq/internal/platform/postgres"
	"github.com/avkuzmin/predictq/internal/queue"
	"github.com/avkuzmin/predictq/internal/service"
	"github.com/avkuzmin/predictq/internal/service/auth"
	"github.com/avkuzmin/predictq/internal/store"
)

// application holds the server's wired dependencies.
type application struct {
	config *config.Config
	logger *slog.Logger

	db    *sql.DB
	queue *queue.RedisQueue

	ledgerStore store.LedgerStore
	taskStore   store.TaskStore

	jwtService        auth.JWTService
	workerKeyVerifier auth.WorkerKeyVerifier

	dispatchService *service.DispatchService
	resultService   *service.ResultService
	billingService  *service.BillingService
}

// newApplication loads configuration and wires every dependency: logging,
// database, migrations, queue, stores, and services. The returned
// application is ready to serve.
func newApplication(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"prediction_cost", cfg.Billing.PredictionCost,
		"models", cfg.Billing.Models)

	db, err := setupAppDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, log); err != nil {
		closeQuietly(db, log)
		return nil, err
	}

	redisQueue, err := setupAppQueue(ctx, cfg, log)
	if err != nil {
		closeQuietly(db, log)
		return nil, err
	}

	app := &application{
		config:      cfg,
		logger:      log,
		db:          db,
		queue:       redisQueue,
		ledgerStore: postgres.NewPostgresLedgerStore(db),
		taskStore:   postgres.NewPostgresTaskStore(db),
	}

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}

	app.workerKeyVerifier = auth.NewBcryptWorkerKeyVerifier(cfg.Auth.WorkerKeyHash)

	app.dispatchService, err = service.NewDispatchService(
		db,
		app.ledgerStore,
		app.taskStore,
		redisQueue,
		cfg.Billing.PredictionCost,
		cfg.Billing.Models,
		log,
	)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create dispatch service: %w", err)
	}

	app.resultService, err = service.NewResultService(app.taskStore, log)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create result service: %w", err)
	}

	app.billingService, err = service.NewBillingService(app.ledgerStore, log)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create billing service: %w", err)
	}

	return app, nil
}

// setupAppQueue connects to Redis and ensures the consumer group exists so
// tasks published before any worker starts are retained.
func setupAppQueue(ctx context.Context, cfg *config.Config, log *slog.Logger) (*queue.RedisQueue, error) {
	redisQueue := queue.NewRedisQueue(cfg.Queue, "server", log)

	if err := redisQueue.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to task queue: %w", err)
	}
	if err := redisQueue.EnsureGroup(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure consumer group: %w", err)
	}

	log.Info("task queue connection established",
		"stream", cfg.Queue.Stream,
		"group", cfg.Queue.Group)
	return redisQueue, nil
}

// cleanup releases the application's external connections.
func (app *application) cleanup() {
	if app.queue != nil {
		if err := app.queue.Close(); err != nil {
			app.logger.Error("failed to close queue connection", "error", err)
		}
	}
	closeQuietly(app.db, app.logger)
}

func closeQuietly(db *sql.DB, log *slog.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		log.Error("failed to close database connection", "error", err)
	}
}
