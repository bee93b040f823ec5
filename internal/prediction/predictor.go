// Package prediction defines the boundary between the worker and the
// external text-prediction service, following the hexagonal architecture
// pattern: the worker depends only on the Predictor interface, never on a
// concrete provider.
package prediction

import "context"

// Predictor generates a text prediction for the given input with the named
// model. Implementations are expected to bound the call with their own
// timeout; callers treat any failure uniformly.
type Predictor interface {
	// Predict returns the generated continuation for input.
	Predict(ctx context.Context, input, model string) (string, error)
}
