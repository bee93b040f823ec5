package auth

import "errors"

// Common authentication errors
var (
	// ErrInvalidToken is returned when a token is malformed, has a bad
	// signature, or carries unexpected claims.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when a token's expiry has passed.
	ErrExpiredToken = errors.New("token expired")

	// ErrInvalidWorkerKey is returned when the key presented on the worker
	// callback endpoint does not match the configured hash.
	ErrInvalidWorkerKey = errors.New("invalid worker key")
)
