package domain

import "errors"

// Validation errors shared across domain entities.
var (
	// ErrValidation is the base error for all domain validation failures.
	ErrValidation = errors.New("validation error")

	// ErrEmptyOwnerID indicates a missing owner identifier.
	ErrEmptyOwnerID = errors.New("owner ID cannot be empty")

	// ErrEmptyInput indicates an empty prediction input payload.
	ErrEmptyInput = errors.New("input text cannot be empty")

	// ErrEmptyModel indicates a missing target model name.
	ErrEmptyModel = errors.New("model name cannot be empty")

	// ErrNonPositiveAmount indicates a ledger amount that is zero or negative.
	ErrNonPositiveAmount = errors.New("amount must be positive")

	// ErrInvalidTransactionKind indicates a transaction kind outside debit/credit.
	ErrInvalidTransactionKind = errors.New("invalid transaction kind")
)
