// Package request holds helpers shared by middleware and handlers for reading
// per-request state.
package request

import (
	"context"
	"net/http"
	"strings"

	"github.com/benvon/smart-snippets/internal/models"
	"github.com/google/uuid"
)

type contextKey string

const userContextKey contextKey = "user"

// UserContextKey returns the context key used for the user. Exposed for tests that inject non-user values.
func UserContextKey() contextKey { return userContextKey }

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// WithUser returns a context with the user attached.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the user from the request context, or nil if missing or wrong type.
func UserFromContext(r *http.Request) *models.User {
	u, _ := r.Context().Value(userContextKey).(*models.User)
	return u
}

// OwnerID returns the authenticated user's ID, or uuid.Nil when the request
// carries no user
func OwnerID(r *http.Request) uuid.UUID {
	if u := UserFromContext(r); u != nil {
		return u.ID
	}
	return uuid.Nil
}
