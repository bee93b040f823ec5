package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avkuzmin/predictq/internal/domain"
	"github.com/avkuzmin/predictq/internal/platform/logger"
	"github.com/avkuzmin/predictq/internal/store"
	"github.com/google/uuid"
)

// PostgresTaskStore implements the store.TaskStore interface using
// a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db store.DBTX
}

// NewPostgresTaskStore creates a new PostgresTaskStore
func NewPostgresTaskStore(db store.DBTX) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresTaskStore{db: db}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx returns a new TaskStore bound to the provided transaction.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx}
}

// CreateTask implements store.TaskStore.CreateTask
func (s *PostgresTaskStore) CreateTask(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tasks (id, owner_id, input, model, cost, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.OwnerID,
		task.Input,
		task.Model,
		task.Cost,
		task.Status,
		task.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		log.Error("failed to save task",
			"task_id", task.ID,
			"error", err)
		return store.NewStoreError("task", "create", "failed to save task", err)
	}

	return nil
}

// GetTask implements store.TaskStore.GetTask
func (s *PostgresTaskStore) GetTask(
	ctx context.Context,
	taskID uuid.UUID,
) (*domain.Task, error) {
	query := `
		SELECT id, owner_id, input, model, cost, result, result_status, status, created_at, completed_at
		FROM tasks
		WHERE id = $1
	`

	task := &domain.Task{}
	var result, resultStatus sql.NullString
	var completedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, taskID).Scan(
		&task.ID,
		&task.OwnerID,
		&task.Input,
		&task.Model,
		&task.Cost,
		&result,
		&resultStatus,
		&task.Status,
		&task.CreatedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, store.NewStoreError("task", "get", "failed to get task", err)
	}

	if result.Valid {
		task.Result = &result.String
	}
	if resultStatus.Valid {
		task.ResultStatus = domain.ResultStatus(resultStatus.String)
	}
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}

	return task, nil
}

// CompleteTask implements store.TaskStore.CompleteTask.
//
// The status predicate in the WHERE clause is the compare-and-swap guard:
// of two concurrent completion reports for the same task, exactly one
// UPDATE matches a pending row.
func (s *PostgresTaskStore) CompleteTask(
	ctx context.Context,
	taskID uuid.UUID,
	result string,
	resultStatus domain.ResultStatus,
) (bool, error) {
	log := logger.FromContext(ctx)

	if !resultStatus.Valid() {
		return false, fmt.Errorf("%w: unknown result status %q", store.ErrInvalidEntity, resultStatus)
	}

	query := `
		UPDATE tasks
		SET result = $1, result_status = $2, status = $3, completed_at = $4
		WHERE id = $5 AND status = $6
	`

	res, err := s.db.ExecContext(ctx, query,
		result,
		resultStatus,
		domain.TaskStatusCompleted,
		time.Now().UTC(),
		taskID,
		domain.TaskStatusPending,
	)
	if err != nil {
		log.Error("failed to complete task",
			"task_id", taskID,
			"error", err)
		return false, store.NewStoreError("task", "complete", "status transition failed", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, store.NewStoreError("task", "complete", "failed to get rows affected", err)
	}

	if rowsAffected > 0 {
		return true, nil
	}

	// No pending row matched: the task either does not exist or is already
	// completed. Look it up to tell the two apart.
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return false, err
	}

	return false, nil
}

// DeleteTask implements store.TaskStore.DeleteTask
func (s *PostgresTaskStore) DeleteTask(ctx context.Context, taskID uuid.UUID) error {
	query := `DELETE FROM tasks WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, taskID)
	if err != nil {
		return store.NewStoreError("task", "delete", "failed to delete task", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return store.NewStoreError("task", "delete", "failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return store.ErrTaskNotFound
	}

	return nil
}

// ListTasksByOwner implements store.TaskStore.ListTasksByOwner
func (s *PostgresTaskStore) ListTasksByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	limit int,
) ([]*domain.Task, error) {
	query := `
		SELECT id, owner_id, input, model, cost, result, result_status, status, created_at, completed_at
		FROM tasks
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, store.NewStoreError("task", "list", "failed to query tasks", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task := &domain.Task{}
		var result, resultStatus sql.NullString
		var completedAt sql.NullTime

		if err := rows.Scan(
			&task.ID,
			&task.OwnerID,
			&task.Input,
			&task.Model,
			&task.Cost,
			&result,
			&resultStatus,
			&task.Status,
			&task.CreatedAt,
			&completedAt,
		); err != nil {
			return nil, store.NewStoreError("task", "list", "failed to scan task row", err)
		}

		if result.Valid {
			task.Result = &result.String
		}
		if resultStatus.Valid {
			task.ResultStatus = domain.ResultStatus(resultStatus.String)
		}
		if completedAt.Valid {
			t := completedAt.Time
			task.CompletedAt = &t
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "list", "error iterating task rows", err)
	}

	return tasks, nil
}
