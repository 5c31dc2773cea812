package middleware

import (
	"context"

	"github.com/benvon/smart-snippets/internal/models"
	"github.com/benvon/smart-snippets/internal/request"
)

// SetUserInContext attaches user the way Auth does. Handler tests use it to
// skip token verification.
func SetUserInContext(ctx context.Context, user *models.User) context.Context {
	return request.WithUser(ctx, user)
}
