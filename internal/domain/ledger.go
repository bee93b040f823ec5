package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionKind distinguishes the two directions a balance can move.
type TransactionKind string

// Possible transaction kinds
const (
	TransactionDebit  TransactionKind = "debit"
	TransactionCredit TransactionKind = "credit"
)

// Balance is one owner's current amount of prediction credits. It is a
// cached projection of the transaction history; it is only ever mutated
// through paired ledger transactions, never directly.
type Balance struct {
	OwnerID   uuid.UUID `json:"owner_id"`
	Amount    int64     `json:"amount"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transaction is an immutable, append-only record of a single balance
// change. Amount is always positive; Kind carries the direction.
type Transaction struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Amount    int64           `json:"amount"`
	Kind      TransactionKind `json:"kind"`
	Reason    string          `json:"reason"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewTransaction creates a Transaction record for the given owner.
// Returns an error if validation fails.
func NewTransaction(
	ownerID uuid.UUID,
	amount int64,
	kind TransactionKind,
	reason string,
) (*Transaction, error) {
	txn := &Transaction{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Amount:    amount,
		Kind:      kind,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}

	if err := txn.Validate(); err != nil {
		return nil, err
	}

	return txn, nil
}

// Validate checks if the Transaction has valid data.
func (t *Transaction) Validate() error {
	if t.OwnerID == uuid.Nil {
		return ErrEmptyOwnerID
	}

	if t.Amount <= 0 {
		return ErrNonPositiveAmount
	}

	if t.Kind != TransactionDebit && t.Kind != TransactionCredit {
		return ErrInvalidTransactionKind
	}

	return nil
}

// Signed returns the amount with the sign implied by the kind: negative
// for debits, positive for credits. The sum of Signed over an owner's
// transactions equals that owner's balance delta since account creation.
func (t *Transaction) Signed() int64 {
	if t.Kind == TransactionDebit {
		return -t.Amount
	}
	return t.Amount
}
