package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avkuzmin/predictq/internal/domain"
)

func TestNewTask(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()

	tests := []struct {
		name    string
		ownerID uuid.UUID
		input   string
		model   string
		cost    int64
		wantErr error
	}{
		{
			name:    "valid task",
			ownerID: ownerID,
			input:   "Once upon a time",
			model:   "gemini-2.0-flash",
			cost:    10,
		},
		{
			name:    "empty owner ID",
			ownerID: uuid.Nil,
			input:   "Once upon a time",
			model:   "gemini-2.0-flash",
			cost:    10,
			wantErr: domain.ErrEmptyOwnerID,
		},
		{
			name:    "empty input",
			ownerID: ownerID,
			input:   "",
			model:   "gemini-2.0-flash",
			cost:    10,
			wantErr: domain.ErrEmptyInput,
		},
		{
			name:    "empty model",
			ownerID: ownerID,
			input:   "Once upon a time",
			model:   "",
			cost:    10,
			wantErr: domain.ErrEmptyModel,
		},
		{
			name:    "zero cost",
			ownerID: ownerID,
			input:   "Once upon a time",
			model:   "gemini-2.0-flash",
			cost:    0,
			wantErr: domain.ErrInvalidTaskCost,
		},
		{
			name:    "negative cost",
			ownerID: ownerID,
			input:   "Once upon a time",
			model:   "gemini-2.0-flash",
			cost:    -5,
			wantErr: domain.ErrInvalidTaskCost,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			task, err := domain.NewTask(tt.ownerID, tt.input, tt.model, tt.cost)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, task)
				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, task.ID)
			assert.Equal(t, tt.ownerID, task.OwnerID)
			assert.Equal(t, domain.TaskStatusPending, task.Status)
			assert.Nil(t, task.Result)
			assert.Nil(t, task.CompletedAt)
			assert.False(t, task.IsCompleted())
		})
	}
}

func TestTaskIDsAreUnique(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	seen := make(map[uuid.UUID]bool)

	for i := 0; i < 100; i++ {
		task, err := domain.NewTask(ownerID, "input", "gemini-2.0-flash", 10)
		require.NoError(t, err)
		assert.False(t, seen[task.ID], "task ID generated twice")
		seen[task.ID] = true
	}
}
