package prediction

import "errors"

// Common errors returned by predictor implementations
var (
	// ErrPredictionFailed is returned when prediction fails for any general reason
	ErrPredictionFailed = errors.New("failed to generate prediction")

	// ErrInvalidResponse is returned when the model response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the model blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrInvalidConfig is returned when the predictor configuration is invalid
	ErrInvalidConfig = errors.New("invalid predictor configuration")

	// ErrEmptyInput is returned when the input text is empty
	ErrEmptyInput = errors.New("input text cannot be empty")
)
