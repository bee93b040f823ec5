package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a prediction task
type TaskStatus string

// Possible task status values. A task is created pending and transitions to
// completed exactly once; there is no persisted failed state — failures
// before dispatch are compensated and the row removed, failures after
// dispatch leave the row pending (see the worker retry policy).
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

// ResultStatus records which kind of outcome a completed task carries: a
// prediction, or an error text persisted in its place. Empty while pending.
type ResultStatus string

// Possible result status values
const (
	ResultStatusCompleted ResultStatus = "completed"
	ResultStatusError     ResultStatus = "error"
)

// Valid reports whether the value is a known result status.
func (s ResultStatus) Valid() bool {
	return s == ResultStatusCompleted || s == ResultStatusError
}

// Common validation errors for Task
var (
	ErrEmptyTaskID      = errors.New("task ID cannot be empty")
	ErrInvalidTaskCost  = errors.New("task cost must be positive")
	ErrInvalidTaskState = errors.New("invalid task status")
)

// Task represents one billed unit of prediction work submitted by an owner.
// The ID is an opaque random token generated at submission time; it is the
// only key workers and readers use to refer to the task.
type Task struct {
	ID           uuid.UUID    `json:"id"`
	OwnerID      uuid.UUID    `json:"owner_id"`
	Input        string       `json:"input"`
	Model        string       `json:"model"`
	Cost         int64        `json:"cost"`
	Result       *string      `json:"result,omitempty"`
	ResultStatus ResultStatus `json:"result_status,omitempty"`
	Status       TaskStatus   `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}

// NewTask creates a pending Task for the given owner, input, and model,
// generating a fresh random task ID. Returns an error if validation fails.
func NewTask(ownerID uuid.UUID, input, model string, cost int64) (*Task, error) {
	t := &Task{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Input:     input,
		Model:     model,
		Cost:      cost,
		Status:    TaskStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.OwnerID == uuid.Nil {
		return ErrEmptyOwnerID
	}

	if t.Input == "" {
		return ErrEmptyInput
	}

	if t.Model == "" {
		return ErrEmptyModel
	}

	if t.Cost <= 0 {
		return ErrInvalidTaskCost
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskState
	}

	return nil
}

// IsCompleted reports whether the task has reached its terminal state.
func (t *Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusCompleted:
		return true
	default:
		return false
	}
}
