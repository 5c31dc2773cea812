package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/benvon/smart-snippets/internal/apperror"
	"github.com/benvon/smart-snippets/internal/models"
)

func TestProvider_GetLoginConfig(t *testing.T) {
	t.Parallel()

	discovery := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"authorization_endpoint": "https://login.example.com/authorize",
			"token_endpoint":         "https://login.example.com/token",
		})
	}))
	t.Cleanup(discovery.Close)

	broken := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(broken.Close)

	store := &fakeConfigStore{configs: map[string]*models.OIDCConfig{
		"discovered": {ClientID: "abc", RedirectURI: "http://localhost:3000/cb", Issuer: discovery.URL},
		"fallback":   {ClientID: "abc", RedirectURI: "http://localhost:3000/cb", Issuer: broken.URL + "/"},
		"cognito": {
			ClientID:    "abc",
			RedirectURI: "http://localhost:3000/cb",
			Issuer:      broken.URL + "/cognito-idp.us-east-1",
			Domain:      stringPtr("idp.example.com"),
		},
	}}
	provider := NewProvider(store)

	tests := []struct {
		name      string
		wantAuth  string
		wantToken string
	}{
		{"discovered", "https://login.example.com/authorize", "https://login.example.com/token"},
		{"fallback", broken.URL + "/oauth2/authorize", broken.URL + "/oauth2/token"},
		{"cognito", "https://idp.example.com/oauth2/authorize", "https://idp.example.com/oauth2/token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := provider.GetLoginConfig(context.Background(), tt.name, "state-1")
			if err != nil {
				t.Fatalf("GetLoginConfig failed: %v", err)
			}
			if cfg.AuthorizationEndpoint != tt.wantAuth {
				t.Errorf("Expected auth endpoint %s, got %s", tt.wantAuth, cfg.AuthorizationEndpoint)
			}
			if cfg.TokenEndpoint != tt.wantToken {
				t.Errorf("Expected token endpoint %s, got %s", tt.wantToken, cfg.TokenEndpoint)
			}
			if !strings.HasPrefix(cfg.AuthorizeURL, tt.wantAuth+"?") || !strings.Contains(cfg.AuthorizeURL, "state=state-1") {
				t.Errorf("Expected authorize URL on %s with state, got %s", tt.wantAuth, cfg.AuthorizeURL)
			}
			if cfg.Scope != "openid email profile" {
				t.Errorf("Expected default scope, got %q", cfg.Scope)
			}
		})
	}
}

func TestProvider_GetConfig_NotFound(t *testing.T) {
	t.Parallel()

	provider := NewProvider(&fakeConfigStore{})
	_, err := provider.GetConfig(context.Background(), "cognito")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}
