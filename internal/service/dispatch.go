package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avkuzmin/predictq/internal/domain"
	"github.com/avkuzmin/predictq/internal/platform/logger"
	"github.com/avkuzmin/predictq/internal/queue"
	"github.com/avkuzmin/predictq/internal/store"
	"github.com/google/uuid"
)

// DispatchService admits prediction requests: it reserves funds, persists
// the pending task, and enqueues the work. The debit and the task insert
// commit atomically in one database transaction; the queue publish happens
// after the commit and is compensated with a refund if it fails, so a
// submitter never ends up charged for work that can never run.
type DispatchService struct {
	db        *sql.DB
	ledger    store.LedgerStore
	tasks     store.TaskStore
	publisher queue.Publisher
	cost      int64
	models    map[string]struct{}
	logger    *slog.Logger
}

// NewDispatchService creates a DispatchService. models is the set of
// registered target model names; cost is the fixed charge per prediction.
func NewDispatchService(
	db *sql.DB,
	ledger store.LedgerStore,
	tasks store.TaskStore,
	publisher queue.Publisher,
	cost int64,
	models []string,
	log *slog.Logger,
) (*DispatchService, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if ledger == nil {
		return nil, errors.New("ledger store cannot be nil")
	}
	if tasks == nil {
		return nil, errors.New("task store cannot be nil")
	}
	if publisher == nil {
		return nil, errors.New("queue publisher cannot be nil")
	}
	if cost <= 0 {
		return nil, fmt.Errorf("prediction cost must be positive, got %d", cost)
	}
	if log == nil {
		log = slog.Default()
	}

	registry := make(map[string]struct{}, len(models))
	for _, m := range models {
		registry[m] = struct{}{}
	}

	return &DispatchService{
		db:        db,
		ledger:    ledger,
		tasks:     tasks,
		publisher: publisher,
		cost:      cost,
		models:    registry,
		logger:    log.With(slog.String("component", "dispatch_service")),
	}, nil
}

// Submit admits one prediction request for the owner and returns the
// created pending task. The caller does not block for completion; the
// result is later polled through the ResultService.
//
// Error contract: ErrModelNotFound and ErrInsufficientFunds are returned
// with no state mutated; ErrDispatchFailed is returned only after the
// charge has been credited back and the task row removed.
func (s *DispatchService) Submit(
	ctx context.Context,
	ownerID uuid.UUID,
	input string,
	model string,
) (*domain.Task, error) {
	log := logger.FromContext(ctx)

	if _, ok := s.models[model]; !ok {
		return nil, ErrModelNotFound
	}

	task, err := domain.NewTask(ownerID, input, model, s.cost)
	if err != nil {
		return nil, fmt.Errorf("invalid prediction request: %w", err)
	}

	// Debit and task insert commit together: a crash between them cannot
	// leave a charge without a task row or a task row without a charge.
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		reason := fmt.Sprintf("prediction with model %s", model)
		if _, err := s.ledger.WithTx(tx).Debit(ctx, ownerID, s.cost, reason); err != nil {
			return err
		}
		return s.tasks.WithTx(tx).CreateTask(ctx, task)
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInsufficientFunds):
			return nil, ErrInsufficientFunds
		case errors.Is(err, store.ErrBalanceNotFound):
			return nil, ErrBalanceNotFound
		default:
			return nil, fmt.Errorf("failed to admit prediction task: %w", err)
		}
	}

	msg := &queue.Message{
		TaskID:     task.ID,
		Input:      input,
		Model:      model,
		EnqueuedAt: time.Now().UTC(),
	}

	if err := s.publisher.Publish(ctx, msg); err != nil {
		log.Error("queue publish failed, compensating charge",
			"task_id", task.ID,
			"owner_id", ownerID,
			"error", err)
		s.compensate(ctx, task)
		return nil, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	log.Info("prediction task dispatched",
		"task_id", task.ID,
		"owner_id", ownerID,
		"model", model,
		"cost", s.cost)

	return task, nil
}

// compensate reverses an admission whose queue publish failed: the cost is
// credited back and the never-dispatched task row removed, in one
// transaction. The task identifier has not been returned to the caller at
// this point, so deleting the row cannot orphan a reader.
func (s *DispatchService) compensate(ctx context.Context, task *domain.Task) {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		reason := fmt.Sprintf("refund: dispatch of task with model %s failed", task.Model)
		if _, err := s.ledger.WithTx(tx).Credit(ctx, task.OwnerID, task.Cost, reason); err != nil {
			return err
		}
		return s.tasks.WithTx(tx).DeleteTask(ctx, task.ID)
	})
	if err != nil {
		// The charge is now inconsistent with the task state and needs
		// operator attention; log loudly with everything needed to repair.
		s.logger.Error("dispatch compensation failed",
			"task_id", task.ID,
			"owner_id", task.OwnerID,
			"cost", task.Cost,
			"error", err)
	}
}
