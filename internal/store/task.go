package store

import (
	"context"
	"database/sql"

	"github.com/avkuzmin/predictq/internal/domain"
	"github.com/google/uuid"
)

// TaskStore is the durable record of submitted prediction tasks and their
// lifecycle state, keyed by the task identifier.
type TaskStore interface {
	// CreateTask persists a new pending task.
	// Returns ErrDuplicate if the task ID is already in use.
	CreateTask(ctx context.Context, task *domain.Task) error

	// GetTask retrieves a task by its identifier.
	// Returns ErrTaskNotFound if no such task exists.
	GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)

	// CompleteTask transitions a pending task to completed and records the
	// result together with the report's outcome kind. The transition is
	// guarded by a compare-and-swap on the status column so that concurrent
	// reports apply at most one transition.
	// Returns (false, nil) when the task is already completed and
	// ErrTaskNotFound when no such task exists.
	CompleteTask(ctx context.Context, taskID uuid.UUID, result string, resultStatus domain.ResultStatus) (bool, error)

	// DeleteTask removes a task row. Used only by dispatch compensation,
	// before the task identifier has ever been returned to the caller.
	// Returns ErrTaskNotFound if no such task exists.
	DeleteTask(ctx context.Context, taskID uuid.UUID) error

	// ListTasksByOwner returns the owner's tasks, newest first.
	ListTasksByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.Task, error)

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction. This allows multiple operations to be executed within a
	// single transaction. The transaction is created and managed by the
	// caller (typically a service).
	WithTx(tx *sql.Tx) TaskStore
}
