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

func newLedgerStore(t *testing.T) (*postgres.PostgresLedgerStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return postgres.NewPostgresLedgerStore(db), mock
}

func TestLedgerStoreGetBalance(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()

	t.Run("existing balance", func(t *testing.T) {
		t.Parallel()
		s, mock := newLedgerStore(t)

		rows := sqlmock.NewRows([]string{"owner_id", "amount", "updated_at"}).
			AddRow(ownerID, int64(50), time.Now())
		mock.ExpectQuery("SELECT owner_id, amount, updated_at").
			WithArgs(ownerID).
			WillReturnRows(rows)

		balance, err := s.GetBalance(context.Background(), ownerID)
		require.NoError(t, err)
		assert.Equal(t, int64(50), balance.Amount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing balance", func(t *testing.T) {
		t.Parallel()
		s, mock := newLedgerStore(t)

		mock.ExpectQuery("SELECT owner_id, amount, updated_at").
			WithArgs(ownerID).
			WillReturnRows(sqlmock.NewRows([]string{"owner_id", "amount", "updated_at"}))

		balance, err := s.GetBalance(context.Background(), ownerID)
		assert.ErrorIs(t, err, store.ErrBalanceNotFound)
		assert.Nil(t, balance)
	})
}

func TestLedgerStoreDebit(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()

	t.Run("sufficient funds", func(t *testing.T) {
		t.Parallel()
		s, mock := newLedgerStore(t)

		mock.ExpectExec("UPDATE balances").
			WithArgs(int64(10), ownerID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO ledger_transactions").
			WithArgs(sqlmock.AnyArg(), ownerID, int64(10), domain.TransactionDebit, "prediction", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		txn, err := s.Debit(context.Background(), ownerID, 10, "prediction")
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionDebit, txn.Kind)
		assert.Equal(t, int64(10), txn.Amount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient funds", func(t *testing.T) {
		t.Parallel()
		s, mock := newLedgerStore(t)

		// The conditional update matches no row, then the balance lookup
		// confirms the owner exists with too little.
		mock.ExpectExec("UPDATE balances").
			WithArgs(int64(10), ownerID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT owner_id, amount, updated_at").
			WithArgs(ownerID).
			WillReturnRows(sqlmock.NewRows([]string{"owner_id", "amount", "updated_at"}).
				AddRow(ownerID, int64(5), time.Now()))

		txn, err := s.Debit(context.Background(), ownerID, 10, "prediction")
		assert.ErrorIs(t, err, store.ErrInsufficientFunds)
		assert.Nil(t, txn)
	})

	t.Run("no balance row", func(t *testing.T) {
		t.Parallel()
		s, mock := newLedgerStore(t)

		mock.ExpectExec("UPDATE balances").
			WithArgs(int64(10), ownerID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT owner_id, amount, updated_at").
			WithArgs(ownerID).
			WillReturnRows(sqlmock.NewRows([]string{"owner_id", "amount", "updated_at"}))

		txn, err := s.Debit(context.Background(), ownerID, 10, "prediction")
		assert.ErrorIs(t, err, store.ErrBalanceNotFound)
		assert.Nil(t, txn)
	})

	t.Run("invalid amount", func(t *testing.T) {
		t.Parallel()
		s, _ := newLedgerStore(t)

		txn, err := s.Debit(context.Background(), ownerID, 0, "prediction")
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.Nil(t, txn)
	})

	t.Run("wraps unexpected database failures with operation context", func(t *testing.T) {
		t.Parallel()
		s, mock := newLedgerStore(t)

		mock.ExpectExec("UPDATE balances").
			WillReturnError(errors.New("connection reset"))

		_, err := s.Debit(context.Background(), ownerID, 10, "prediction")
		var storeErr *store.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "balance", storeErr.Entity)
		assert.Equal(t, "debit", storeErr.Operation)
	})
}

func TestLedgerStoreCredit(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()

	t.Run("upserts the balance row", func(t *testing.T) {
		t.Parallel()
		s, mock := newLedgerStore(t)

		mock.ExpectExec("INSERT INTO balances").
			WithArgs(ownerID, int64(50)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO ledger_transactions").
			WithArgs(sqlmock.AnyArg(), ownerID, int64(50), domain.TransactionCredit, "balance replenishment", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		txn, err := s.Credit(context.Background(), ownerID, 50, "balance replenishment")
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionCredit, txn.Kind)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerStoreListTransactions(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	s, mock := newLedgerStore(t)

	rows := sqlmock.NewRows([]string{"id", "owner_id", "amount", "kind", "reason", "created_at"}).
		AddRow(uuid.New(), ownerID, int64(10), "debit", "prediction", time.Now()).
		AddRow(uuid.New(), ownerID, int64(50), "credit", "balance replenishment", time.Now().Add(-time.Hour))
	mock.ExpectQuery("SELECT id, owner_id, amount, kind, reason, created_at").
		WithArgs(ownerID, 20).
		WillReturnRows(rows)

	txns, err := s.ListTransactions(context.Background(), ownerID, 20)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, domain.TransactionDebit, txns[0].Kind)
	assert.Equal(t, int64(-10), txns[0].Signed())
	assert.Equal(t, int64(50), txns[1].Signed())
}
