// Package auth validates the identities the pipeline trusts: owners arrive
// with JWT bearer tokens minted by the surrounding system, workers present a
// static key on the result callback endpoint. Registration, login, and
// session management live outside this codebase.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avkuzmin/predictq/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims holds the validated identity extracted from a token.
type Claims struct {
	OwnerID uuid.UUID
}

// JWTService validates owner bearer tokens and, for tests and local
// tooling, can mint them.
type JWTService interface {
	// GenerateToken creates a signed access token for the given owner.
	GenerateToken(ctx context.Context, ownerID uuid.UUID) (string, error)

	// ValidateToken verifies a token and returns its claims.
	// Returns ErrExpiredToken or ErrInvalidToken on failure.
	ValidateToken(ctx context.Context, token string) (*Claims, error)
}

// hmacJWTService is an implementation of JWTService using HMAC-SHA signing.
type hmacJWTService struct {
	signingKey    []byte
	tokenLifetime time.Duration
	timeFunc      func() time.Time // Injectable for testing
}

// jwtCustomClaims defines the structure of JWT claims we use
type jwtCustomClaims struct {
	OwnerID uuid.UUID `json:"uid"`
	jwt.RegisteredClaims
}

// Ensure hmacJWTService implements JWTService interface
var _ JWTService = (*hmacJWTService)(nil)

// NewJWTService creates a new JWT service using HMAC-SHA signing.
func NewJWTService(cfg config.AuthConfig) (JWTService, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}

	lifetime := time.Duration(cfg.TokenLifetimeMinutes) * time.Minute
	if lifetime <= 0 {
		lifetime = time.Hour
	}

	return &hmacJWTService{
		signingKey:    []byte(cfg.JWTSecret),
		tokenLifetime: lifetime,
		timeFunc:      time.Now,
	}, nil
}

// GenerateToken creates a signed JWT access token with owner claims.
func (s *hmacJWTService) GenerateToken(ctx context.Context, ownerID uuid.UUID) (string, error) {
	now := s.timeFunc()

	claims := jwtCustomClaims{
		OwnerID: ownerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenLifetime)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token with HMAC-SHA256: %w", err)
	}

	return signedToken, nil
}

// ValidateToken validates a JWT access token and returns the claims if valid.
func (s *hmacJWTService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		&jwtCustomClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.signingKey, nil
		},
		jwt.WithTimeFunc(s.timeFunc),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*jwtCustomClaims)
	if !ok || !parsed.Valid || claims.OwnerID == uuid.Nil {
		return nil, ErrInvalidToken
	}

	return &Claims{OwnerID: claims.OwnerID}, nil
}
