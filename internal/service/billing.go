package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/avkuzmin/predictq/internal/domain"
	"github.com/avkuzmin/predictq/internal/platform/logger"
	"github.com/avkuzmin/predictq/internal/store"
	"github.com/google/uuid"
)

// BillingService serves balances and transaction history, and applies
// top-ups. It never touches task state.
type BillingService struct {
	ledger store.LedgerStore
	logger *slog.Logger
}

// NewBillingService creates a BillingService.
func NewBillingService(ledger store.LedgerStore, log *slog.Logger) (*BillingService, error) {
	if ledger == nil {
		return nil, errors.New("ledger store cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &BillingService{
		ledger: ledger,
		logger: log.With(slog.String("component", "billing_service")),
	}, nil
}

// GetBalance returns the owner's current balance.
func (s *BillingService) GetBalance(
	ctx context.Context,
	ownerID uuid.UUID,
) (*domain.Balance, error) {
	balance, err := s.ledger.GetBalance(ctx, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrBalanceNotFound) {
			return nil, ErrBalanceNotFound
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// TopUp credits the owner's balance by amount and returns the new balance.
func (s *BillingService) TopUp(
	ctx context.Context,
	ownerID uuid.UUID,
	amount int64,
) (*domain.Balance, error) {
	log := logger.FromContext(ctx)

	if amount <= 0 {
		return nil, fmt.Errorf("%w: top-up amount must be positive", domain.ErrNonPositiveAmount)
	}

	if _, err := s.ledger.Credit(ctx, ownerID, amount, "balance replenishment"); err != nil {
		return nil, fmt.Errorf("failed to top up balance: %w", err)
	}

	log.Info("balance topped up",
		"owner_id", ownerID,
		"amount", amount)

	return s.GetBalance(ctx, ownerID)
}

// ListTransactions returns the owner's ledger history, newest first.
func (s *BillingService) ListTransactions(
	ctx context.Context,
	ownerID uuid.UUID,
	limit int,
) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	txns, err := s.ledger.ListTransactions(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}
