package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avkuzmin/predictq/internal/domain"
)

func TestNewTransaction(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()

	tests := []struct {
		name    string
		ownerID uuid.UUID
		amount  int64
		kind    domain.TransactionKind
		wantErr error
	}{
		{
			name:    "valid debit",
			ownerID: ownerID,
			amount:  10,
			kind:    domain.TransactionDebit,
		},
		{
			name:    "valid credit",
			ownerID: ownerID,
			amount:  100,
			kind:    domain.TransactionCredit,
		},
		{
			name:    "empty owner",
			ownerID: uuid.Nil,
			amount:  10,
			kind:    domain.TransactionDebit,
			wantErr: domain.ErrEmptyOwnerID,
		},
		{
			name:    "zero amount",
			ownerID: ownerID,
			amount:  0,
			kind:    domain.TransactionCredit,
			wantErr: domain.ErrNonPositiveAmount,
		},
		{
			name:    "negative amount",
			ownerID: ownerID,
			amount:  -10,
			kind:    domain.TransactionDebit,
			wantErr: domain.ErrNonPositiveAmount,
		},
		{
			name:    "unknown kind",
			ownerID: ownerID,
			amount:  10,
			kind:    domain.TransactionKind("transfer"),
			wantErr: domain.ErrInvalidTransactionKind,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			txn, err := domain.NewTransaction(tt.ownerID, tt.amount, tt.kind, "test")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, txn)
				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, txn.ID)
			assert.Equal(t, tt.amount, txn.Amount)
		})
	}
}

func TestTransactionSigned(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()

	debit, err := domain.NewTransaction(ownerID, 10, domain.TransactionDebit, "prediction")
	require.NoError(t, err)
	credit, err := domain.NewTransaction(ownerID, 50, domain.TransactionCredit, "replenishment")
	require.NoError(t, err)

	assert.Equal(t, int64(-10), debit.Signed())
	assert.Equal(t, int64(50), credit.Signed())

	// A debit/credit pair of equal amounts cancels out, which is what
	// makes compensation net to zero on the owner's history.
	refund, err := domain.NewTransaction(ownerID, 10, domain.TransactionCredit, "refund")
	require.NoError(t, err)
	assert.Equal(t, int64(0), debit.Signed()+refund.Signed())
}
