package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ReportStatus is the outcome carried in a completion report.
type ReportStatus string

// Report outcomes
const (
	ReportCompleted ReportStatus = "completed"
	ReportError     ReportStatus = "error"
)

// Report is one task outcome delivered to the result collector.
type Report struct {
	TaskID   uuid.UUID    `json:"task_id"`
	Result   string       `json:"result"`
	WorkerID string       `json:"worker_id"`
	Status   ReportStatus `json:"status"`
}

// Reporter delivers completion reports. Report returns whether the
// collector applied the result; a false return with nil error means the
// report was a logical no-op (duplicate or unknown task) and must not be
// retried.
type Reporter interface {
	Report(ctx context.Context, report *Report) (bool, error)
}

// ErrReportRejected indicates the collector answered with a non-success
// status, so delivery cannot be confirmed.
var ErrReportRejected = errors.New("result report rejected")

// HTTPReporter delivers reports to the collector's internal callback
// endpoint, authenticating with the shared worker key.
type HTTPReporter struct {
	endpoint  string
	workerKey string
	client    *http.Client
	logger    *slog.Logger
}

// NewHTTPReporter creates an HTTPReporter.
func NewHTTPReporter(endpoint, workerKey string, timeout time.Duration, logger *slog.Logger) (*HTTPReporter, error) {
	if endpoint == "" {
		return nil, errors.New("endpoint cannot be empty")
	}
	if workerKey == "" {
		return nil, errors.New("worker key cannot be empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPReporter{
		endpoint:  endpoint,
		workerKey: workerKey,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With(slog.String("component", "reporter")),
	}, nil
}

type reportResponse struct {
	Applied bool `json:"applied"`
}

// Report posts the outcome to the collector and parses its acknowledgment.
func (r *HTTPReporter) Report(ctx context.Context, report *Report) (bool, error) {
	body, err := json.Marshal(report)
	if err != nil {
		return false, fmt.Errorf("failed to encode report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to build report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Worker-Key", r.workerKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to deliver report: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: status %d", ErrReportRejected, resp.StatusCode)
	}

	var ack reportResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return false, fmt.Errorf("failed to decode report acknowledgment: %w", err)
	}

	return ack.Applied, nil
}
