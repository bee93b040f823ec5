package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/avkuzmin/predictq/internal/domain"
	"github.com/avkuzmin/predictq/internal/service"
	"github.com/avkuzmin/predictq/internal/service/auth"
	"github.com/avkuzmin/predictq/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidWorkerKey):
		return http.StatusUnauthorized

	// Payment errors
	case errors.Is(err, service.ErrInsufficientFunds):
		return http.StatusPaymentRequired

	// Not found errors. A task owned by someone else maps here too, so
	// foreign tasks are indistinguishable from missing ones.
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrModelNotFound),
		errors.Is(err, service.ErrBalanceNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, domain.ErrEmptyInput),
		errors.Is(err, domain.ErrEmptyModel),
		errors.Is(err, domain.ErrNonPositiveAmount),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error (includes ErrDispatchFailed)
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidWorkerKey):
		return "Invalid worker key"

	case errors.Is(err, service.ErrInsufficientFunds):
		return "Insufficient funds"

	case errors.Is(err, service.ErrModelNotFound):
		return "Model not found"

	case errors.Is(err, service.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, service.ErrBalanceNotFound):
		return "Balance not found"

	case errors.Is(err, service.ErrDispatchFailed):
		return "Failed to dispatch prediction task"

	case errors.Is(err, domain.ErrEmptyInput),
		errors.Is(err, domain.ErrEmptyModel),
		errors.Is(err, domain.ErrNonPositiveAmount),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example format: "Key: 'SubmitRequest.Input' Error:Field validation for 'Input' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "gt":
		return "must be positive"
	case "uuid":
		return "invalid identifier"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
