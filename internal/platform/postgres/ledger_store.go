package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avkuzmin/predictq/internal/domain"
	"github.com/avkuzmin/predictq/internal/platform/logger"
	"github.com/avkuzmin/predictq/internal/store"
	"github.com/google/uuid"
)

// PostgresLedgerStore implements the store.LedgerStore interface using
// a PostgreSQL database as the storage backend.
type PostgresLedgerStore struct {
	db store.DBTX
}

// NewPostgresLedgerStore creates a new PostgreSQL implementation of the
// LedgerStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
func NewPostgresLedgerStore(db store.DBTX) *PostgresLedgerStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresLedgerStore{db: db}
}

// Ensure PostgresLedgerStore implements store.LedgerStore interface
var _ store.LedgerStore = (*PostgresLedgerStore)(nil)

// WithTx returns a new LedgerStore bound to the provided transaction.
func (s *PostgresLedgerStore) WithTx(tx *sql.Tx) store.LedgerStore {
	return &PostgresLedgerStore{db: tx}
}

// GetBalance implements store.LedgerStore.GetBalance
func (s *PostgresLedgerStore) GetBalance(
	ctx context.Context,
	ownerID uuid.UUID,
) (*domain.Balance, error) {
	query := `
		SELECT owner_id, amount, updated_at
		FROM balances
		WHERE owner_id = $1
	`

	balance := &domain.Balance{}
	err := s.db.QueryRowContext(ctx, query, ownerID).
		Scan(&balance.OwnerID, &balance.Amount, &balance.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrBalanceNotFound
		}
		return nil, store.NewStoreError("balance", "get", "failed to get balance", err)
	}

	return balance, nil
}

// Debit implements store.LedgerStore.Debit.
//
// The balance update is a single conditional UPDATE guarded by
// amount >= $1, so two concurrent debits can never take a balance below
// zero: one of them observes the reduced amount and gets zero rows back.
func (s *PostgresLedgerStore) Debit(
	ctx context.Context,
	ownerID uuid.UUID,
	amount int64,
	reason string,
) (*domain.Transaction, error) {
	log := logger.FromContext(ctx)

	txn, err := domain.NewTransaction(ownerID, amount, domain.TransactionDebit, reason)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE balances
		SET amount = amount - $1, updated_at = NOW()
		WHERE owner_id = $2 AND amount >= $1
	`

	result, err := s.db.ExecContext(ctx, query, amount, ownerID)
	if err != nil {
		log.Error("failed to debit balance",
			"owner_id", ownerID,
			"amount", amount,
			"error", err)
		return nil, store.NewStoreError("balance", "debit", "conditional update failed", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, store.NewStoreError("balance", "debit", "failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		// Either the owner has no balance row or the amount is too low.
		// Distinguish the two for the caller's error mapping.
		if _, err := s.GetBalance(ctx, ownerID); err != nil {
			return nil, err
		}
		return nil, store.ErrInsufficientFunds
	}

	if err := s.insertTransaction(ctx, txn); err != nil {
		return nil, err
	}

	return txn, nil
}

// Credit implements store.LedgerStore.Credit.
//
// The balance row is upserted, so an owner's first replenishment creates
// the row rather than failing.
func (s *PostgresLedgerStore) Credit(
	ctx context.Context,
	ownerID uuid.UUID,
	amount int64,
	reason string,
) (*domain.Transaction, error) {
	log := logger.FromContext(ctx)

	txn, err := domain.NewTransaction(ownerID, amount, domain.TransactionCredit, reason)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO balances (owner_id, amount, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (owner_id)
		DO UPDATE SET amount = balances.amount + EXCLUDED.amount, updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, ownerID, amount); err != nil {
		log.Error("failed to credit balance",
			"owner_id", ownerID,
			"amount", amount,
			"error", err)
		return nil, store.NewStoreError("balance", "credit", "upsert failed", err)
	}

	if err := s.insertTransaction(ctx, txn); err != nil {
		return nil, err
	}

	return txn, nil
}

// ListTransactions implements store.LedgerStore.ListTransactions
func (s *PostgresLedgerStore) ListTransactions(
	ctx context.Context,
	ownerID uuid.UUID,
	limit int,
) ([]*domain.Transaction, error) {
	query := `
		SELECT id, owner_id, amount, kind, reason, created_at
		FROM ledger_transactions
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, store.NewStoreError("transaction", "list", "failed to query transactions", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []*domain.Transaction
	for rows.Next() {
		txn := &domain.Transaction{}
		if err := rows.Scan(
			&txn.ID,
			&txn.OwnerID,
			&txn.Amount,
			&txn.Kind,
			&txn.Reason,
			&txn.CreatedAt,
		); err != nil {
			return nil, store.NewStoreError("transaction", "list", "failed to scan transaction row", err)
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("transaction", "list", "error iterating transaction rows", err)
	}

	return txns, nil
}

// insertTransaction appends a ledger transaction record.
func (s *PostgresLedgerStore) insertTransaction(
	ctx context.Context,
	txn *domain.Transaction,
) error {
	query := `
		INSERT INTO ledger_transactions (id, owner_id, amount, kind, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		txn.ID,
		txn.OwnerID,
		txn.Amount,
		txn.Kind,
		txn.Reason,
		txn.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return store.NewStoreError("transaction", "create", "failed to insert ledger transaction", err)
	}

	return nil
}
