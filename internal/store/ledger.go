package store

import (
	"context"
	"database/sql"

	"github.com/avkuzmin/predictq/internal/domain"
	"github.com/google/uuid"
)

// LedgerStore is the durable record of balances and their transaction
// history. Debit and Credit are applied as atomic conditional updates paired
// with an appended transaction record — never as read-modify-write in two
// steps — so concurrent requests against the same balance cannot race.
type LedgerStore interface {
	// GetBalance retrieves the owner's current balance.
	// Returns ErrBalanceNotFound if the owner has no balance record.
	GetBalance(ctx context.Context, ownerID uuid.UUID) (*domain.Balance, error)

	// Debit atomically subtracts amount from the owner's balance and appends
	// a debit transaction with the given reason. Returns the created
	// transaction record. Returns ErrInsufficientFunds without mutating any
	// state if the balance is below amount, and ErrBalanceNotFound if the
	// owner has no balance record.
	Debit(ctx context.Context, ownerID uuid.UUID, amount int64, reason string) (*domain.Transaction, error)

	// Credit atomically adds amount to the owner's balance and appends a
	// credit transaction with the given reason. Returns the created
	// transaction record. Returns ErrBalanceNotFound if the owner has no
	// balance record.
	Credit(ctx context.Context, ownerID uuid.UUID, amount int64, reason string) (*domain.Transaction, error)

	// ListTransactions returns the owner's ledger transactions, newest first.
	ListTransactions(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.Transaction, error)

	// WithTx returns a new LedgerStore instance that uses the provided
	// transaction. This allows multiple operations to be executed within a
	// single transaction. The transaction is created and managed by the
	// caller (typically a service).
	WithTx(tx *sql.Tx) LedgerStore
}
