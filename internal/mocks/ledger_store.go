package mocks

import (
	"context"
	"database/sql"
	"sync"

	"github.com/avkuzmin/predictq/internal/domain"
	"github.com/avkuzmin/predictq/internal/store"
	"github.com/google/uuid"
)

// FakeLedgerStore is an in-memory LedgerStore. Debit applies the same
// conditional-update semantics as the postgres implementation: the check
// and the subtraction happen under one lock, so concurrent debits cannot
// take a balance below zero.
type FakeLedgerStore struct {
	mu           sync.Mutex
	balances     map[uuid.UUID]int64
	transactions []*domain.Transaction

	// DebitErr and CreditErr, when set, are returned by the corresponding
	// operation before any state change.
	DebitErr  error
	CreditErr error
}

// NewFakeLedgerStore creates an empty FakeLedgerStore.
func NewFakeLedgerStore() *FakeLedgerStore {
	return &FakeLedgerStore{
		balances: make(map[uuid.UUID]int64),
	}
}

// Ensure FakeLedgerStore implements store.LedgerStore
var _ store.LedgerStore = (*FakeLedgerStore)(nil)

// SetBalance seeds an owner's balance.
func (s *FakeLedgerStore) SetBalance(ownerID uuid.UUID, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[ownerID] = amount
}

// Transactions returns a copy of all recorded transactions.
func (s *FakeLedgerStore) Transactions() []*domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// GetBalance implements store.LedgerStore.GetBalance
func (s *FakeLedgerStore) GetBalance(
	ctx context.Context,
	ownerID uuid.UUID,
) (*domain.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount, ok := s.balances[ownerID]
	if !ok {
		return nil, store.ErrBalanceNotFound
	}
	return &domain.Balance{OwnerID: ownerID, Amount: amount}, nil
}

// Debit implements store.LedgerStore.Debit
func (s *FakeLedgerStore) Debit(
	ctx context.Context,
	ownerID uuid.UUID,
	amount int64,
	reason string,
) (*domain.Transaction, error) {
	if s.DebitErr != nil {
		return nil, s.DebitErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.balances[ownerID]
	if !ok {
		return nil, store.ErrBalanceNotFound
	}
	if current < amount {
		return nil, store.ErrInsufficientFunds
	}

	txn, err := domain.NewTransaction(ownerID, amount, domain.TransactionDebit, reason)
	if err != nil {
		return nil, err
	}

	s.balances[ownerID] = current - amount
	s.transactions = append(s.transactions, txn)
	return txn, nil
}

// Credit implements store.LedgerStore.Credit
func (s *FakeLedgerStore) Credit(
	ctx context.Context,
	ownerID uuid.UUID,
	amount int64,
	reason string,
) (*domain.Transaction, error) {
	if s.CreditErr != nil {
		return nil, s.CreditErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txn, err := domain.NewTransaction(ownerID, amount, domain.TransactionCredit, reason)
	if err != nil {
		return nil, err
	}

	// Credits upsert: a first replenishment creates the balance.
	s.balances[ownerID] += amount
	s.transactions = append(s.transactions, txn)
	return txn, nil
}

// ListTransactions implements store.LedgerStore.ListTransactions
func (s *FakeLedgerStore) ListTransactions(
	ctx context.Context,
	ownerID uuid.UUID,
	limit int,
) ([]*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Transaction
	for i := len(s.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		if s.transactions[i].OwnerID == ownerID {
			out = append(out, s.transactions[i])
		}
	}
	return out, nil
}

// WithTx implements store.LedgerStore.WithTx. The fake has no transaction
// isolation; it returns itself.
func (s *FakeLedgerStore) WithTx(tx *sql.Tx) store.LedgerStore {
	return s
}
