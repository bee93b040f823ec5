package api

import (
	"time"

	"github.com/avkuzmin/predictq/internal/domain"
)

// TaskResponse represents the response data for a prediction task.
type TaskResponse struct {
	ID           string     `json:"id"`
	Model        string     `json:"model"`
	Cost         int64      `json:"cost"`
	Status       string     `json:"status"`
	Result       *string    `json:"result,omitempty"`
	ResultStatus string     `json:"result_status,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// taskToResponse transforms a domain task into its API representation.
// The input text is not echoed back; callers already have it. ResultStatus
// lets a caller tell a persisted error text from a prediction.
func taskToResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:           task.ID.String(),
		Model:        task.Model,
		Cost:         task.Cost,
		Status:       string(task.Status),
		Result:       task.Result,
		ResultStatus: string(task.ResultStatus),
		CreatedAt:    task.CreatedAt,
		CompletedAt:  task.CompletedAt,
	}
}

// BalanceResponse represents the response data for an owner's balance.
type BalanceResponse struct {
	OwnerID   string    `json:"owner_id"`
	Amount    int64     `json:"amount"`
	UpdatedAt time.Time `json:"updated_at"`
}

func balanceToResponse(balance *domain.Balance) BalanceResponse {
	return BalanceResponse{
		OwnerID:   balance.OwnerID.String(),
		Amount:    balance.Amount,
		UpdatedAt: balance.UpdatedAt,
	}
}

// TransactionResponse represents one ledger entry in a history listing.
type TransactionResponse struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	Kind      string    `json:"kind"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func transactionToResponse(txn *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:        txn.ID.String(),
		Amount:    txn.Signed(),
		Kind:      string(txn.Kind),
		Reason:    txn.Reason,
		CreatedAt: txn.CreatedAt,
	}
}
