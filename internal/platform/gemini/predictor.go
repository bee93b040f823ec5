// Package gemini implements the prediction.Predictor interface using
// Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avkuzmin/predictq/internal/config"
	"github.com/avkuzmin/predictq/internal/prediction"
	"google.golang.org/genai"
)

// GeminiPredictor implements the prediction.Predictor interface by calling
// the Gemini text-generation API with a bounded timeout.
type GeminiPredictor struct {
	logger  *slog.Logger
	client  *genai.Client
	timeout time.Duration
}

// Ensure GeminiPredictor implements prediction.Predictor
var _ prediction.Predictor = (*GeminiPredictor)(nil)

// NewGeminiPredictor creates a new GeminiPredictor with the provided
// configuration. Returns an error if the API key is missing or the client
// cannot be constructed.
func NewGeminiPredictor(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.LLMConfig,
) (*GeminiPredictor, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", prediction.ErrInvalidConfig)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			prediction.ErrInvalidConfig, err)
	}

	return &GeminiPredictor{
		logger:  logger.With(slog.String("component", "gemini_predictor")),
		client:  client,
		timeout: timeout,
	}, nil
}

// Predict implements prediction.Predictor.Predict. The call is bounded by
// the configured timeout; a run-over surfaces as a context deadline error
// and the worker treats it like any other processing failure.
func (g *GeminiPredictor) Predict(ctx context.Context, input, model string) (string, error) {
	if input == "" {
		return "", prediction.ErrEmptyInput
	}
	if model == "" {
		return "", fmt.Errorf("%w: model name cannot be empty", prediction.ErrInvalidConfig)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	g.logger.DebugContext(callCtx, "calling Gemini API",
		"model", model,
		"input_length", len(input))

	resp, err := g.client.Models.GenerateContent(callCtx, model, genai.Text(input), nil)
	if err != nil {
		g.logger.ErrorContext(callCtx, "Gemini API call error",
			"model", model,
			"error", err)
		return "", fmt.Errorf("%w: %v", prediction.ErrPredictionFailed, err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", prediction.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: finish reason safety", prediction.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", prediction.ErrInvalidResponse)
	}

	text := ""
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text += part.Text
		}
	}

	if text == "" {
		return "", fmt.Errorf("%w: response contained no text parts", prediction.ErrInvalidResponse)
	}

	g.logger.DebugContext(callCtx, "Gemini API call successful",
		"model", model,
		"response_length", len(text))

	return text, nil
}
