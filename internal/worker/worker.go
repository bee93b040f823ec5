// Package worker implements the long-lived queue consumer process: it pulls
// prediction tasks from the durable queue, executes them against the
// external prediction service, and reports outcomes to the result collector
// before acknowledging the broker.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avkuzmin/predictq/internal/prediction"
	"github.com/avkuzmin/predictq/internal/queue"
)

// State represents the worker's connection lifecycle.
type State string

// Possible worker states
const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConsuming    State = "consuming"
	StateProcessing   State = "processing"
)

// Connector establishes a live consumer on the broker. Connect is retried
// without bound; a returned consumer is assumed usable until Fetch reports
// queue.ErrConnectionLost.
type Connector interface {
	Connect(ctx context.Context) (queue.Consumer, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context) (queue.Consumer, error)

// Connect implements Connector.
func (f ConnectorFunc) Connect(ctx context.Context) (queue.Consumer, error) {
	return f(ctx)
}

// Config holds the worker's policy constants.
type Config struct {
	// ID identifies this worker process in completion reports.
	ID string

	// MaxRetries bounds consecutive processing failures before the current
	// message is dead-lettered.
	MaxRetries int

	// RetryDelay is the fixed pause before a nack-with-requeue.
	RetryDelay time.Duration

	// ReconnectDelay is the fixed backoff between connection attempts.
	ReconnectDelay time.Duration
}

// DefaultConfig returns a Config with the standard policy constants.
func DefaultConfig() Config {
	return Config{
		ID:             "worker-1",
		MaxRetries:     3,
		RetryDelay:     500 * time.Millisecond,
		ReconnectDelay: 5 * time.Second,
	}
}

// Worker consumes prediction tasks until its context is canceled. It keeps
// no in-memory state about a task past acknowledgment: the task store,
// updated through the result collector, is the system of record, so a
// worker crash at any point causes redelivery rather than loss.
type Worker struct {
	connector Connector
	predictor prediction.Predictor
	reporter  Reporter
	config    Config
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	retries int // consecutive failures on this process, reset on success
}

// New creates a Worker. All dependencies are required.
func New(
	connector Connector,
	predictor prediction.Predictor,
	reporter Reporter,
	config Config,
	logger *slog.Logger,
) (*Worker, error) {
	if connector == nil {
		return nil, errors.New("connector cannot be nil")
	}
	if predictor == nil {
		return nil, errors.New("predictor cannot be nil")
	}
	if reporter == nil {
		return nil, errors.New("reporter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = 5 * time.Second
	}

	return &Worker{
		connector: connector,
		predictor: predictor,
		reporter:  reporter,
		config:    config,
		logger:    logger.With(slog.String("component", "worker"), slog.String("worker_id", config.ID)),
		state:     StateDisconnected,
	}, nil
}

// State returns the worker's current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// Run drives the connect/consume loop until ctx is canceled. A dropped
// connection returns the worker to connecting rather than crashing the
// process.
func (w *Worker) Run(ctx context.Context) error {
	for {
		consumer, err := w.connect(ctx)
		if err != nil {
			return err // only on context cancellation
		}

		consumeErr := w.consume(ctx, consumer)

		// The dropped consumer must be closed before a replacement is
		// connected; a worker reconnects indefinitely and would otherwise
		// accumulate broker connections.
		if err := consumer.Close(); err != nil {
			w.logger.Warn("failed to close consumer", "error", err)
		}
		w.setState(StateDisconnected)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.Error("consumption interrupted, reconnecting",
			"error", consumeErr)
	}
}

// connect establishes a consumer with unbounded retry and fixed backoff.
func (w *Worker) connect(ctx context.Context) (queue.Consumer, error) {
	w.setState(StateConnecting)

	for {
		consumer, err := w.connector.Connect(ctx)
		if err == nil {
			w.logger.Info("connected to task queue")
			return consumer, nil
		}

		w.logger.Error("failed to connect to task queue, retrying",
			"error", err,
			"retry_delay", w.config.ReconnectDelay.String())

		select {
		case <-ctx.Done():
			w.setState(StateDisconnected)
			return nil, ctx.Err()
		case <-time.After(w.config.ReconnectDelay):
		}
	}
}

// consume fetches and processes messages until the connection drops or the
// context is canceled.
func (w *Worker) consume(ctx context.Context, consumer queue.Consumer) error {
	w.setState(StateConsuming)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delivery, err := consumer.Fetch(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrNoMessage) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("fetch failed: %w", err)
		}

		w.process(ctx, consumer, delivery)
		w.setState(StateConsuming)
	}
}

// process executes one delivery: predict, report, then acknowledge. The ack
// happens strictly after the result collector confirms receipt — a crash
// anywhere before that point causes redelivery, never silent loss.
func (w *Worker) process(ctx context.Context, consumer queue.Consumer, d *queue.Delivery) {
	w.setState(StateProcessing)

	msg := d.Message
	log := w.logger.With("task_id", msg.TaskID, "model", msg.Model)
	log.Info("processing task")

	result, status, err := w.predict(ctx, msg.Input, msg.Model)
	if err != nil {
		log.Error("prediction failed", "error", err)
		w.reject(ctx, consumer, d, log)
		return
	}

	report := &Report{
		TaskID:   msg.TaskID,
		Result:   result,
		WorkerID: w.config.ID,
		Status:   status,
	}

	applied, err := w.reporter.Report(ctx, report)
	if err != nil {
		log.Error("failed to deliver result", "error", err)
		w.reject(ctx, consumer, d, log)
		return
	}
	if !applied {
		// Duplicate or unknown task: expected under at-least-once
		// delivery, never a reason to retry.
		log.Info("result not applied (duplicate or unknown task)")
	}

	if err := consumer.Ack(ctx, d); err != nil {
		// The result is recorded; a redelivery after this failure is
		// absorbed by the collector's idempotency.
		log.Error("failed to ack delivery", "error", err)
		return
	}

	w.mu.Lock()
	w.retries = 0
	w.mu.Unlock()
	log.Info("task completed")
}

// predict calls the external service. Permanent failures (blocked content,
// unusable response) become an error-status report so the task still
// resolves; everything else is a processing failure that goes through the
// retry path.
func (w *Worker) predict(ctx context.Context, input, model string) (string, ReportStatus, error) {
	result, err := w.predictor.Predict(ctx, input, model)
	if err == nil {
		return result, ReportCompleted, nil
	}

	if errors.Is(err, prediction.ErrContentBlocked) ||
		errors.Is(err, prediction.ErrInvalidResponse) {
		return err.Error(), ReportError, nil
	}

	return "", ReportError, err
}

// reject applies the bounded-retry policy: while the consecutive-failure
// counter is under the bound, the message is requeued after a short fixed
// delay; at the bound it is dead-lettered and the counter reset. A
// dead-lettered task stays pending forever — there is no reconciliation
// sweep — so this is logged loudly.
func (w *Worker) reject(ctx context.Context, consumer queue.Consumer, d *queue.Delivery, log *slog.Logger) {
	w.mu.Lock()
	w.retries++
	retries := w.retries
	if retries >= w.config.MaxRetries {
		w.retries = 0
	}
	w.mu.Unlock()

	if retries >= w.config.MaxRetries {
		log.Error("max retries reached, dead-lettering task",
			"retries", retries)
		if err := consumer.Nack(ctx, d, false); err != nil {
			log.Error("failed to dead-letter delivery", "error", err)
		}
		return
	}

	log.Warn("processing failed, requeueing",
		"retries", retries,
		"max_retries", w.config.MaxRetries)

	if w.config.RetryDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.config.RetryDelay):
		}
	}

	if err := consumer.Nack(ctx, d, true); err != nil {
		log.Error("failed to requeue delivery", "error", err)
	}
}
