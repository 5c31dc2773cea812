package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/benvon/smart-snippets/internal/database"
	logpkg "github.com/benvon/smart-snippets/internal/logger"
	"github.com/benvon/smart-snippets/internal/models"
	"github.com/benvon/smart-snippets/internal/request"
	"github.com/benvon/smart-snippets/internal/services/oidc"
	"go.uber.org/zap"
)

// TokenVerifier checks a bearer token and returns its identity claims
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.JWTClaims, error)
}

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	return request.UserFromContext(r)
}

// Auth authenticates bearer tokens and attaches the owning user to the
// request. Unknown identities are provisioned on first use.
func Auth(verifier TokenVerifier, users database.UserRepositoryInterface, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "Unauthorized", "Missing or malformed Authorization header", logger)
				return
			}

			ctx := r.Context()
			claims, err := verifier.Verify(ctx, token)
			if err != nil {
				if errors.Is(err, oidc.ErrUnavailable) {
					logger.Error("token_verification_unavailable",
						zap.String("error", logpkg.SanitizeError(err)),
					)
					writeError(w, r, http.StatusInternalServerError, "Internal Server Error", "Authentication is not available", logger)
					return
				}
				logger.Debug("token_verification_failed",
					zap.String("error", logpkg.SanitizeError(err)),
				)
				writeError(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token", logger)
				return
			}

			var name *string
			if claims.Name != "" {
				name = &claims.Name
			}
			user, err := users.GetOrCreate(ctx, claims.Iss, claims.Sub, claims.Email, name)
			if err != nil {
				logger.Error("failed_to_resolve_user",
					zap.String("subject", logpkg.SanitizeUserID(claims.Sub)),
					zap.String("error", logpkg.SanitizeError(err)),
				)
				writeError(w, r, http.StatusInternalServerError, "Internal Server Error", "Failed to resolve user", logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
