package oidc

import (
	"net/url"
	"testing"

	"github.com/benvon/smart-snippets/internal/models"
	"golang.org/x/oauth2"
)

func stringPtr(s string) *string {
	return &s
}

var testEndpoints = Endpoints{
	AuthorizationEndpoint: "https://auth.example.com/oauth2/authorize",
	TokenEndpoint:         "https://auth.example.com/oauth2/token",
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		oidcConfig    *models.OIDCConfig
		wantSecret    string
		wantAuthStyle oauth2.AuthStyle
	}{
		{
			name: "confidential client",
			oidcConfig: &models.OIDCConfig{
				ClientID:     "test-client-id",
				ClientSecret: stringPtr("test-secret"),
				RedirectURI:  "http://localhost:3000/callback",
				Issuer:       "https://auth.example.com",
			},
			wantSecret:    "test-secret",
			wantAuthStyle: oauth2.AuthStyleInHeader,
		},
		{
			name: "public client",
			oidcConfig: &models.OIDCConfig{
				ClientID:    "test-client-id",
				RedirectURI: "http://localhost:3000/callback",
				Issuer:      "https://auth.example.com",
			},
			wantSecret:    "",
			wantAuthStyle: oauth2.AuthStyleInParams,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := NewClient(tt.oidcConfig, testEndpoints)
			if client.config.ClientID != "test-client-id" {
				t.Errorf("Expected ClientID 'test-client-id', got '%s'", client.config.ClientID)
			}
			if client.config.ClientSecret != tt.wantSecret {
				t.Errorf("Expected ClientSecret '%s', got '%s'", tt.wantSecret, client.config.ClientSecret)
			}
			if client.config.Endpoint.AuthStyle != tt.wantAuthStyle {
				t.Errorf("Expected auth style %v, got %v", tt.wantAuthStyle, client.config.Endpoint.AuthStyle)
			}
			if client.config.Endpoint.TokenURL != testEndpoints.TokenEndpoint {
				t.Errorf("Expected token URL %s, got %s", testEndpoints.TokenEndpoint, client.config.Endpoint.TokenURL)
			}
		})
	}
}

func TestClient_AuthCodeURL(t *testing.T) {
	t.Parallel()

	client := NewClient(&models.OIDCConfig{
		ClientID:    "test-client-id",
		RedirectURI: "http://localhost:3000/callback",
		Issuer:      "https://auth.example.com",
	}, testEndpoints)

	raw := client.AuthCodeURL("test-state-123")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("AuthCodeURL returned an invalid URL: %v", err)
	}
	if u.Host != "auth.example.com" || u.Path != "/oauth2/authorize" {
		t.Errorf("Expected authorize endpoint, got %s", raw)
	}

	q := u.Query()
	checks := map[string]string{
		"state":         "test-state-123",
		"client_id":     "test-client-id",
		"redirect_uri":  "http://localhost:3000/callback",
		"response_type": "code",
		"scope":         "openid email profile",
	}
	for key, want := range checks {
		if got := q.Get(key); got != want {
			t.Errorf("Expected %s=%q, got %q", key, want, got)
		}
	}
}

func TestClient_ExchangeCode(t *testing.T) {
	t.Parallel()

	t.Skip("ExchangeCode requires an OAuth2 provider - covered by integration tests")
}
