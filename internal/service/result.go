package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/avkuzmin/predictq/internal/domain"
	"github.com/avkuzmin/predictq/internal/platform/logger"
	"github.com/avkuzmin/predictq/internal/store"
	"github.com/google/uuid"
)

// ReportStatus is the outcome a worker reports for a task.
type ReportStatus string

// Possible report status values
const (
	ReportStatusCompleted ReportStatus = "completed"
	ReportStatusError     ReportStatus = "error"
)

// ResultService applies worker completion reports to the task store and
// serves task state back to owners.
type ResultService struct {
	tasks  store.TaskStore
	logger *slog.Logger
}

// NewResultService creates a ResultService.
func NewResultService(tasks store.TaskStore, log *slog.Logger) (*ResultService, error) {
	if tasks == nil {
		return nil, errors.New("task store cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &ResultService{
		tasks:  tasks,
		logger: log.With(slog.String("component", "result_service")),
	}, nil
}

// ApplyResult idempotently applies a worker's report to the task record.
//
// Returns (true, nil) when this call performed the pending → completed
// transition, and (false, nil) when the task does not exist or was already
// completed — both are expected under at-least-once delivery and must never
// surface as errors to the worker. An error-status report resolves the task
// the same way as a success, persisting the error text as the result and the
// report status alongside it; no refund is issued for post-dispatch failures.
func (s *ResultService) ApplyResult(
	ctx context.Context,
	taskID uuid.UUID,
	result string,
	workerID string,
	status ReportStatus,
) (bool, error) {
	log := logger.FromContext(ctx)

	resultStatus := domain.ResultStatusCompleted
	if status == ReportStatusError {
		resultStatus = domain.ResultStatusError
	}

	applied, err := s.tasks.CompleteTask(ctx, taskID, result, resultStatus)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			log.Warn("result report for unknown task",
				"task_id", taskID,
				"worker_id", workerID)
			return false, nil
		}
		return false, fmt.Errorf("failed to apply result: %w", err)
	}

	if !applied {
		log.Info("duplicate result report ignored",
			"task_id", taskID,
			"worker_id", workerID)
		return false, nil
	}

	log.Info("task completed",
		"task_id", taskID,
		"worker_id", workerID,
		"report_status", string(status))

	return true, nil
}

// GetResult returns the task's current state for the requesting owner.
//
// A task that does not exist and a task owned by someone else produce the
// same ErrTaskNotFound, so an owner probing foreign identifiers learns
// nothing. Purely read-only.
func (s *ResultService) GetResult(
	ctx context.Context,
	taskID uuid.UUID,
	ownerID uuid.UUID,
) (*domain.Task, error) {
	task, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	if task.OwnerID != ownerID {
		return nil, ErrTaskNotFound
	}

	return task, nil
}

// ListTasks returns the owner's own tasks, newest first.
func (s *ResultService) ListTasks(
	ctx context.Context,
	ownerID uuid.UUID,
	limit int,
) ([]*domain.Task, error) {
	if limit <= 0 {
		limit = 50
	}
	tasks, err := s.tasks.ListTasksByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}
