package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/avkuzmin/predictq/internal/api/shared"
	"github.com/avkuzmin/predictq/internal/service/auth"
)

// AuthMiddleware provides JWT authentication for routes.
type AuthMiddleware struct {
	jwtService auth.JWTService
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(jwtService auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
	}
}

// Authenticate validates JWT tokens from the Authorization header and
// adds the owner ID to the request context for authorized requests.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		token := parts[1]

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
			} else {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			}
			return
		}

		ctx := context.WithValue(r.Context(), shared.OwnerIDContextKey, claims.OwnerID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetOwnerID extracts the authenticated owner ID from the request context.
// Returns the owner ID and a boolean indicating if it was found.
func GetOwnerID(r *http.Request) (uuid.UUID, bool) {
	ownerID, ok := r.Context().Value(shared.OwnerIDContextKey).(uuid.UUID)
	return ownerID, ok
}

// WorkerAuthMiddleware authenticates the internal result callback endpoint
// with the shared worker key.
type WorkerAuthMiddleware struct {
	verifier auth.WorkerKeyVerifier
	logger   *slog.Logger
}

// NewWorkerAuthMiddleware creates a new WorkerAuthMiddleware.
func NewWorkerAuthMiddleware(verifier auth.WorkerKeyVerifier, logger *slog.Logger) *WorkerAuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerAuthMiddleware{
		verifier: verifier,
		logger:   logger.With(slog.String("component", "worker_auth")),
	}
}

// Authenticate verifies the X-Worker-Key header against the configured key
// hash before allowing access to worker-internal endpoints.
func (m *WorkerAuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Worker-Key")
		if key == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Worker key required")
			return
		}

		if err := m.verifier.Verify(key); err != nil {
			m.logger.Warn("rejected result callback with invalid worker key",
				"remote_addr", r.RemoteAddr)
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid worker key")
			return
		}

		next.ServeHTTP(w, r)
	})
}
