package store_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avkuzmin/predictq/internal/store"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestRunInTransactionCommitsOnSuccess(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	var called bool
	err := store.RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransactionRollsBackOnError(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	sentinel := errors.New("operation failed")
	err := store.RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransactionRollsBackOnPanic(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = store.RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
			panic("boom")
		})
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransactionBeginFailure(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := store.RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		t.Fatal("transaction body must not run when begin fails")
		return nil
	})

	assert.ErrorIs(t, err, store.ErrTransactionFailed)
}

func TestRunInTransactionCommitFailure(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("disk full"))

	err := store.RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		return nil
	})

	assert.ErrorIs(t, err, store.ErrTransactionFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
