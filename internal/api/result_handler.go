package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/avkuzmin/predictq/internal/api/shared"
	"github.com/avkuzmin/predictq/internal/platform/logger"
	"github.com/avkuzmin/predictq/internal/service"
)

// ReportResultRequest represents the result callback body posted by workers.
type ReportResultRequest struct {
	TaskID   string `json:"task_id"  validate:"required,uuid"`
	Result   string `json:"result"`
	WorkerID string `json:"worker_id" validate:"required"`
	Status   string `json:"status"   validate:"required,oneof=completed error"`
}

// ReportResultResponse acknowledges a result callback. Applied is false for
// duplicate or unknown-task reports, which still answer 200 so the worker
// acks and moves on.
type ReportResultResponse struct {
	Applied bool `json:"applied"`
}

// ResultHandler handles the internal worker result callback.
type ResultHandler struct {
	results *service.ResultService
	logger  *slog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(results *service.ResultService, logger *slog.Logger) *ResultHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ResultHandler")
	}

	return &ResultHandler{
		results: results,
		logger:  logger.With(slog.String("component", "result_handler")),
	}
}

// ReportResult handles POST /internal/results requests.
//
// The endpoint is idempotent: a report for an already-completed or unknown
// task is a logical no-op acknowledged with 200, never an error, so
// redeliveries under at-least-once consumption settle quietly.
func (h *ResultHandler) ReportResult(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req ReportResultRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task_id")
		return
	}

	applied, err := h.results.ApplyResult(
		r.Context(),
		taskID,
		req.Result,
		req.WorkerID,
		service.ReportStatus(req.Status),
	)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to record result", err)
		return
	}

	log.Debug("result callback handled",
		slog.String("task_id", taskID.String()),
		slog.String("worker_id", req.WorkerID),
		slog.Bool("applied", applied))
	shared.RespondWithJSON(w, r, http.StatusOK, ReportResultResponse{Applied: applied})
}
