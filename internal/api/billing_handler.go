package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/avkuzmin/predictq/internal/api/shared"
	"github.com/avkuzmin/predictq/internal/platform/logger"
	"github.com/avkuzmin/predictq/internal/service"
)

// TopUpRequest represents the request body for a balance replenishment.
type TopUpRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// BillingHandler handles balance and ledger-history HTTP requests.
type BillingHandler struct {
	billing *service.BillingService
	logger  *slog.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(billing *service.BillingService, logger *slog.Logger) *BillingHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for BillingHandler")
	}

	return &BillingHandler{
		billing: billing,
		logger:  logger.With(slog.String("component", "billing_handler")),
	}
}

func ownerFromRequest(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	ownerID, ok := r.Context().Value(shared.OwnerIDContextKey).(uuid.UUID)
	if !ok || ownerID == uuid.Nil {
		log.Warn("owner ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Owner ID not found or invalid")
		return uuid.Nil, false
	}
	return ownerID, true
}

// GetBalance handles GET /balance requests.
func (h *BillingHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := ownerFromRequest(w, r, log)
	if !ok {
		return
	}

	balance, err := h.billing.GetBalance(r.Context(), ownerID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, balanceToResponse(balance))
}

// TopUp handles POST /balance/topup requests.
func (h *BillingHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := ownerFromRequest(w, r, log)
	if !ok {
		return
	}

	var req TopUpRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	balance, err := h.billing.TopUp(r.Context(), ownerID, req.Amount)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Info("balance replenished",
		slog.String("owner_id", ownerID.String()),
		slog.Int64("amount", req.Amount))
	shared.RespondWithJSON(w, r, http.StatusOK, balanceToResponse(balance))
}

// ListTransactions handles GET /history/transactions requests, returning the
// owner's ledger entries newest first. Debits carry negative amounts.
func (h *BillingHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := ownerFromRequest(w, r, log)
	if !ok {
		return
	}

	txns, err := h.billing.ListTransactions(r.Context(), ownerID, 0)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	responses := make([]TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		responses = append(responses, transactionToResponse(txn))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}
