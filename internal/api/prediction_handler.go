// Package api provides HTTP handlers for the API.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avkuzmin/predictq/internal/api/shared"
	"github.com/avkuzmin/predictq/internal/platform/logger"
	"github.com/avkuzmin/predictq/internal/service"
)

// SubmitPredictionRequest represents the request body for submitting a
// prediction task.
type SubmitPredictionRequest struct {
	Input string `json:"input" validate:"required"`
	Model string `json:"model" validate:"required"`
}

// PredictionHandler handles prediction task HTTP requests.
type PredictionHandler struct {
	dispatch *service.DispatchService
	results  *service.ResultService
	logger   *slog.Logger
}

// NewPredictionHandler creates a new PredictionHandler.
func NewPredictionHandler(
	dispatch *service.DispatchService,
	results *service.ResultService,
	logger *slog.Logger,
) *PredictionHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for PredictionHandler")
	}

	return &PredictionHandler{
		dispatch: dispatch,
		results:  results,
		logger:   logger.With(slog.String("component", "prediction_handler")),
	}
}

// SubmitPrediction handles POST /predictions requests.
// It charges the owner and enqueues the task, answering 202 with the task
// in its pending state; the caller polls GetPrediction for the result.
func (h *PredictionHandler) SubmitPrediction(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := r.Context().Value(shared.OwnerIDContextKey).(uuid.UUID)
	if !ok || ownerID == uuid.Nil {
		log.Warn("owner ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Owner ID not found or invalid")
		return
	}

	var req SubmitPredictionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	task, err := h.dispatch.Submit(r.Context(), ownerID, req.Input, req.Model)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Info("prediction task accepted",
		slog.String("task_id", task.ID.String()),
		slog.String("model", task.Model))
	shared.RespondWithJSON(w, r, http.StatusAccepted, taskToResponse(task))
}

// GetPrediction handles GET /predictions/{taskID} requests.
// A task owned by someone else answers 404, identically to a task that does
// not exist.
func (h *PredictionHandler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := r.Context().Value(shared.OwnerIDContextKey).(uuid.UUID)
	if !ok || ownerID == uuid.Nil {
		log.Warn("owner ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Owner ID not found or invalid")
		return
	}

	taskID, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		// An unparseable identifier cannot name any task.
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return
	}

	task, err := h.results.GetResult(r.Context(), taskID, ownerID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// ListPredictions handles GET /history/predictions requests, returning the
// owner's tasks newest first.
func (h *PredictionHandler) ListPredictions(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := r.Context().Value(shared.OwnerIDContextKey).(uuid.UUID)
	if !ok || ownerID == uuid.Nil {
		log.Warn("owner ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Owner ID not found or invalid")
		return
	}

	tasks, err := h.results.ListTasks(r.Context(), ownerID, 0)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, taskToResponse(task))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}
