package mocks

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/avkuzmin/predictq/internal/domain"
	"github.com/avkuzmin/predictq/internal/store"
	"github.com/google/uuid"
)

// FakeTaskStore is an in-memory TaskStore with the same compare-and-swap
// completion semantics as the postgres implementation.
type FakeTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task

	// CreateErr, when set, is returned by CreateTask before any state change.
	CreateErr error
}

// NewFakeTaskStore creates an empty FakeTaskStore.
func NewFakeTaskStore() *FakeTaskStore {
	return &FakeTaskStore{
		tasks: make(map[uuid.UUID]*domain.Task),
	}
}

// Ensure FakeTaskStore implements store.TaskStore
var _ store.TaskStore = (*FakeTaskStore)(nil)

// CreateTask implements store.TaskStore.CreateTask
func (s *FakeTaskStore) CreateTask(ctx context.Context, task *domain.Task) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return store.ErrDuplicate
	}

	clone := *task
	s.tasks[task.ID] = &clone
	return nil
}

// GetTask implements store.TaskStore.GetTask
func (s *FakeTaskStore) GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	clone := *task
	return &clone, nil
}

// CompleteTask implements store.TaskStore.CompleteTask
func (s *FakeTaskStore) CompleteTask(
	ctx context.Context,
	taskID uuid.UUID,
	result string,
	resultStatus domain.ResultStatus,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return false, store.ErrTaskNotFound
	}
	if task.Status != domain.TaskStatusPending {
		return false, nil
	}

	now := time.Now().UTC()
	task.Result = &result
	task.ResultStatus = resultStatus
	task.Status = domain.TaskStatusCompleted
	task.CompletedAt = &now
	return true, nil
}

// DeleteTask implements store.TaskStore.DeleteTask
func (s *FakeTaskStore) DeleteTask(ctx context.Context, taskID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[taskID]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.tasks, taskID)
	return nil
}

// ListTasksByOwner implements store.TaskStore.ListTasksByOwner
func (s *FakeTaskStore) ListTasksByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	limit int,
) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Task
	for _, task := range s.tasks {
		if task.OwnerID == ownerID {
			clone := *task
			out = append(out, &clone)
		}
	}
	// Newest first, matching the store contract.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored tasks.
func (s *FakeTaskStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// WithTx implements store.TaskStore.WithTx. The fake has no transaction
// isolation; it returns itself.
func (s *FakeTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return s
}
