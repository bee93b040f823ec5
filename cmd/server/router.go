package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/avkuzmin/predictq/internal/api"
	apiMiddleware "github.com/avkuzmin/predictq/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	predictionHandler := api.NewPredictionHandler(app.dispatchService, app.resultService, app.logger)
	billingHandler := api.NewBillingHandler(app.billingService, app.logger)
	resultHandler := api.NewResultHandler(app.resultService, app.logger)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	workerAuth := apiMiddleware.NewWorkerAuthMiddleware(app.workerKeyVerifier, app.logger)

	r.Route("/api", func(r chi.Router) {
		// Worker-internal endpoints, authenticated by shared key
		r.Group(func(r chi.Router) {
			r.Use(workerAuth.Authenticate)
			r.Post("/internal/results", resultHandler.ReportResult)
		})

		// Owner-facing endpoints, authenticated by bearer token
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/predictions", predictionHandler.SubmitPrediction)
			r.Get("/predictions/{taskID}", predictionHandler.GetPrediction)

			r.Get("/balance", billingHandler.GetBalance)
			r.Post("/balance/topup", billingHandler.TopUp)

			r.Get("/history/transactions", billingHandler.ListTransactions)
			r.Get("/history/predictions", predictionHandler.ListPredictions)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
