// Package main implements the entry point for the prediction worker, a
// long-lived process that consumes tasks from the durable queue, runs them
// against the external prediction service, and reports results back to the
// API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/avkuzmin/predictq/internal/config"
	"github.com/avkuzmin/predictq/internal/platform/gemini"
	"github.com/avkuzmin/predictq/internal/platform/logger"
	"github.com/avkuzmin/predictq/internal/queue"
	"github.com/avkuzmin/predictq/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Worker error: %v", err)
	}
}

// run wires the worker's dependencies and consumes until ctx is canceled.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logg, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	logg.Info("worker configuration loaded",
		"worker_id", cfg.Worker.ID,
		"stream", cfg.Queue.Stream,
		"group", cfg.Queue.Group,
		"max_retries", cfg.Worker.MaxRetries)

	predictor, err := gemini.NewGeminiPredictor(ctx, logg, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create predictor: %w", err)
	}

	reporter, err := worker.NewHTTPReporter(
		cfg.Worker.ResultEndpoint,
		cfg.Worker.WorkerKey,
		time.Duration(cfg.Worker.ReportTimeoutSecs)*time.Second,
		logg,
	)
	if err != nil {
		return fmt.Errorf("failed to create result reporter: %w", err)
	}

	connector := worker.ConnectorFunc(func(ctx context.Context) (queue.Consumer, error) {
		return connectQueue(ctx, cfg, logg)
	})

	w, err := worker.New(connector, predictor, reporter, worker.Config{
		ID:             cfg.Worker.ID,
		MaxRetries:     cfg.Worker.MaxRetries,
		RetryDelay:     time.Duration(cfg.Worker.RetryDelayMillis) * time.Millisecond,
		ReconnectDelay: time.Duration(cfg.Worker.ReconnectDelaySecs) * time.Second,
	}, logg)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	logg.Info("worker starting", "worker_id", cfg.Worker.ID)
	return w.Run(ctx)
}

// connectQueue opens a fresh queue connection for one consume session. Each
// reconnect builds a new client so a wedged connection is fully discarded.
func connectQueue(ctx context.Context, cfg *config.Config, logg *slog.Logger) (queue.Consumer, error) {
	q := queue.NewRedisQueue(cfg.Queue, cfg.Worker.ID, logg)
	q.SetBlockTimeout(time.Duration(cfg.Worker.BlockTimeoutSeconds) * time.Second)

	if err := q.Ping(ctx); err != nil {
		_ = q.Close()
		return nil, err
	}
	if err := q.EnsureGroup(ctx); err != nil {
		_ = q.Close()
		return nil, err
	}

	return q, nil
}
