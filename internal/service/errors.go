// Package service provides the application-level operations of the billed
// prediction pipeline: dispatch, result collection, result reading, and
// balance management.
package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// Callers check for these with errors.Is(); the API layer maps them to HTTP
// status codes.
var (
	// ErrInsufficientFunds indicates the owner's balance does not cover the
	// prediction cost. No state is mutated. Maps to HTTP 402.
	ErrInsufficientFunds = errors.New("insufficient funds for prediction")

	// ErrModelNotFound indicates the requested target model is not
	// registered. Returned before any debit. Maps to HTTP 404.
	ErrModelNotFound = errors.New("model not found")

	// ErrTaskNotFound indicates the task does not exist or belongs to a
	// different owner — the two cases are deliberately indistinguishable so
	// task identifiers do not leak across owners. Maps to HTTP 404.
	ErrTaskNotFound = errors.New("task not found")

	// ErrBalanceNotFound indicates the owner has no balance record.
	// Maps to HTTP 404.
	ErrBalanceNotFound = errors.New("balance not found")

	// ErrDispatchFailed indicates the task could not be enqueued after the
	// charge was taken; the charge has already been credited back when this
	// error is returned. Maps to HTTP 500.
	ErrDispatchFailed = errors.New("failed to dispatch prediction task")
)
