package handlers

import (
	"context"
	"net/http"

	"github.com/benvon/smart-snippets/internal/middleware"
	"github.com/benvon/smart-snippets/internal/services/oidc"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// LoginConfigSource builds the login parameters for an OIDC provider
type LoginConfigSource interface {
	GetLoginConfig(ctx context.Context, providerName, state string) (*oidc.LoginConfig, error)
}

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	provider     LoginConfigSource
	providerName string
	logger       *zap.Logger
}

// NewAuthHandler creates a new auth handler. provider is nil when tokens are
// minted locally with a shared secret.
func NewAuthHandler(provider LoginConfigSource, providerName string, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{provider: provider, providerName: providerName, logger: logger}
}

// RegisterLoginRoutes registers the public login routes
// The router should already have the /api/v1/auth/oidc prefix
func (h *AuthHandler) RegisterLoginRoutes(r *mux.Router) {
	r.HandleFunc("/login", h.GetOIDCLogin).Methods(http.MethodGet)
}

// RegisterRoutes registers the authenticated auth routes
// The router should already have the /api/v1/auth prefix
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.GetMe).Methods(http.MethodGet)
}

// GetOIDCLogin returns the authorization URL and parameters for the frontend
func (h *AuthHandler) GetOIDCLogin(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "OIDC login is not enabled")
		return
	}

	loginConfig, err := h.provider.GetLoginConfig(r.Context(), h.providerName, uuid.NewString())
	if err != nil {
		h.logger.Error("failed_to_get_oidc_login_config",
			zap.String("provider", h.providerName),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to get OIDC configuration")
		return
	}

	respondJSON(w, http.StatusOK, loginConfig)
}

// GetMe returns current user information
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	respondJSON(w, http.StatusOK, user)
}
