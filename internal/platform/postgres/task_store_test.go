package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avkuzmin/predictq/internal/domain"
	"github.com/avkuzmin/predictq/internal/platform/postgres"
	"github.com/avkuzmin/predictq/internal/store"
)

func newTaskStore(t *testing.T) (*postgres.PostgresTaskStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return postgres.NewPostgresTaskStore(db), mock
}

var taskColumns = []string{
	"id", "owner_id", "input", "model", "cost", "result", "result_status",
	"status", "created_at", "completed_at",
}

func taskRows(task *domain.Task) *sqlmock.Rows {
	var resultStatus any
	if task.ResultStatus != "" {
		resultStatus = string(task.ResultStatus)
	}
	return sqlmock.NewRows(taskColumns).AddRow(
		task.ID, task.OwnerID, task.Input, task.Model, task.Cost,
		task.Result, resultStatus, task.Status, task.CreatedAt, task.CompletedAt,
	)
}

func TestTaskStoreCreateTask(t *testing.T) {
	t.Parallel()

	task, err := domain.NewTask(uuid.New(), "Once upon a time", "gemini-2.0-flash", 10)
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		s, mock := newTaskStore(t)

		mock.ExpectExec("INSERT INTO tasks").
			WithArgs(task.ID, task.OwnerID, task.Input, task.Model, task.Cost,
				task.Status, task.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.CreateTask(context.Background(), task))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects invalid task", func(t *testing.T) {
		t.Parallel()
		s, _ := newTaskStore(t)

		bad := *task
		bad.Cost = 0
		err := s.CreateTask(context.Background(), &bad)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})
}

func TestTaskStoreGetTask(t *testing.T) {
	t.Parallel()

	task, err := domain.NewTask(uuid.New(), "Once upon a time", "gemini-2.0-flash", 10)
	require.NoError(t, err)

	t.Run("pending task", func(t *testing.T) {
		t.Parallel()
		s, mock := newTaskStore(t)

		mock.ExpectQuery("SELECT id, owner_id, input, model, cost, result, result_status").
			WithArgs(task.ID).
			WillReturnRows(taskRows(task))

		got, err := s.GetTask(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.ID, got.ID)
		assert.Equal(t, domain.TaskStatusPending, got.Status)
		assert.Nil(t, got.Result)
	})

	t.Run("completed task carries result", func(t *testing.T) {
		t.Parallel()
		s, mock := newTaskStore(t)

		result := "and they lived happily ever after"
		now := time.Now().UTC()
		done := *task
		done.Result = &result
		done.ResultStatus = domain.ResultStatusCompleted
		done.Status = domain.TaskStatusCompleted
		done.CompletedAt = &now

		mock.ExpectQuery("SELECT id, owner_id, input, model, cost, result, result_status").
			WithArgs(task.ID).
			WillReturnRows(taskRows(&done))

		got, err := s.GetTask(context.Background(), task.ID)
		require.NoError(t, err)
		assert.True(t, got.IsCompleted())
		require.NotNil(t, got.Result)
		assert.Equal(t, result, *got.Result)
		assert.Equal(t, domain.ResultStatusCompleted, got.ResultStatus)
		require.NotNil(t, got.CompletedAt)
	})

	t.Run("missing task", func(t *testing.T) {
		t.Parallel()
		s, mock := newTaskStore(t)

		mock.ExpectQuery("SELECT id, owner_id, input, model, cost, result, result_status").
			WithArgs(task.ID).
			WillReturnRows(sqlmock.NewRows(taskColumns))

		got, err := s.GetTask(context.Background(), task.ID)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
		assert.True(t, store.IsNotFoundError(err))
		assert.Nil(t, got)
	})
}

func TestTaskStoreCompleteTask(t *testing.T) {
	t.Parallel()

	task, err := domain.NewTask(uuid.New(), "Once upon a time", "gemini-2.0-flash", 10)
	require.NoError(t, err)

	t.Run("applies to a pending task", func(t *testing.T) {
		t.Parallel()
		s, mock := newTaskStore(t)

		mock.ExpectExec("UPDATE tasks").
			WithArgs("result text", domain.ResultStatusCompleted, domain.TaskStatusCompleted,
				sqlmock.AnyArg(), task.ID, domain.TaskStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		applied, err := s.CompleteTask(context.Background(), task.ID, "result text",
			domain.ResultStatusCompleted)
		require.NoError(t, err)
		assert.True(t, applied)
	})

	t.Run("no-op on an already completed task", func(t *testing.T) {
		t.Parallel()
		s, mock := newTaskStore(t)

		mock.ExpectExec("UPDATE tasks").
			WithArgs("result text", domain.ResultStatusCompleted, domain.TaskStatusCompleted,
				sqlmock.AnyArg(), task.ID, domain.TaskStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 0))

		result := "earlier result"
		now := time.Now().UTC()
		done := *task
		done.Result = &result
		done.Status = domain.TaskStatusCompleted
		done.CompletedAt = &now
		mock.ExpectQuery("SELECT id, owner_id, input, model, cost, result, result_status").
			WithArgs(task.ID).
			WillReturnRows(taskRows(&done))

		applied, err := s.CompleteTask(context.Background(), task.ID, "result text",
			domain.ResultStatusCompleted)
		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("unknown task", func(t *testing.T) {
		t.Parallel()
		s, mock := newTaskStore(t)

		mock.ExpectExec("UPDATE tasks").
			WithArgs("result text", domain.ResultStatusCompleted, domain.TaskStatusCompleted,
				sqlmock.AnyArg(), task.ID, domain.TaskStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, owner_id, input, model, cost, result, result_status").
			WithArgs(task.ID).
			WillReturnRows(sqlmock.NewRows(taskColumns))

		applied, err := s.CompleteTask(context.Background(), task.ID, "result text",
			domain.ResultStatusCompleted)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
		assert.False(t, applied)
	})

	t.Run("records an error outcome", func(t *testing.T) {
		t.Parallel()
		s, mock := newTaskStore(t)

		mock.ExpectExec("UPDATE tasks").
			WithArgs("prediction failed: content blocked", domain.ResultStatusError,
				domain.TaskStatusCompleted, sqlmock.AnyArg(), task.ID, domain.TaskStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		applied, err := s.CompleteTask(context.Background(), task.ID,
			"prediction failed: content blocked", domain.ResultStatusError)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects an unknown result status", func(t *testing.T) {
		t.Parallel()
		s, _ := newTaskStore(t)

		applied, err := s.CompleteTask(context.Background(), task.ID, "result text",
			domain.ResultStatus("exploded"))
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.False(t, applied)
	})

	t.Run("wraps unexpected database failures with operation context", func(t *testing.T) {
		t.Parallel()
		s, mock := newTaskStore(t)

		mock.ExpectExec("UPDATE tasks").
			WillReturnError(errors.New("connection reset"))

		_, err := s.CompleteTask(context.Background(), task.ID, "result text",
			domain.ResultStatusCompleted)
		var storeErr *store.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "task", storeErr.Entity)
		assert.Equal(t, "complete", storeErr.Operation)
	})
}

func TestTaskStoreDeleteTask(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()
	s, mock := newTaskStore(t)

	mock.ExpectExec("DELETE FROM tasks").
		WithArgs(taskID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.DeleteTask(context.Background(), taskID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
