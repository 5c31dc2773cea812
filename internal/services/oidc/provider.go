// Package oidc resolves identity provider settings, caches signing keys and
// verifies bearer tokens issued by the provider.
package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/smart-snippets/internal/models"
)

// ConfigStore loads provider settings
type ConfigStore interface {
	GetByProvider(ctx context.Context, provider string) (*models.OIDCConfig, error)
}

// Provider manages OIDC provider configuration
type Provider struct {
	store      ConfigStore
	httpClient *http.Client
}

// NewProvider creates a provider backed by store
func NewProvider(store ConfigStore) *Provider {
	return &Provider{
		store:      store,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// LoginConfig is what a browser client needs to start the login flow
type LoginConfig struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	AuthorizeURL          string `json:"authorize_url"`
	ClientID              string `json:"client_id"`
	RedirectURI           string `json:"redirect_uri"`
	Scope                 string `json:"scope"`
}

// GetConfig retrieves the stored settings for a provider
func (p *Provider) GetConfig(ctx context.Context, providerName string) (*models.OIDCConfig, error) {
	cfg, err := p.store.GetByProvider(ctx, providerName)
	if err != nil {
		return nil, fmt.Errorf("failed to get OIDC config: %w", err)
	}
	return cfg, nil
}

// GetLoginConfig resolves the provider's endpoints and builds an authorize
// URL carrying state
func (p *Provider) GetLoginConfig(ctx context.Context, providerName, state string) (*LoginConfig, error) {
	cfg, err := p.GetConfig(ctx, providerName)
	if err != nil {
		return nil, err
	}

	endpoints := p.discover(ctx, cfg.Issuer)
	if base := domainBaseURL(cfg); base != "" {
		// Cognito hosted UI flows only work on the domain endpoints
		endpoints.AuthorizationEndpoint = base + "/oauth2/authorize"
		endpoints.TokenEndpoint = base + "/oauth2/token"
	}
	if endpoints.AuthorizationEndpoint == "" {
		endpoints.AuthorizationEndpoint = issuerURL(cfg.Issuer, "oauth2/authorize")
	}
	if endpoints.TokenEndpoint == "" {
		endpoints.TokenEndpoint = issuerURL(cfg.Issuer, "oauth2/token")
	}

	client := NewClient(cfg, endpoints)
	return &LoginConfig{
		AuthorizationEndpoint: endpoints.AuthorizationEndpoint,
		TokenEndpoint:         endpoints.TokenEndpoint,
		AuthorizeURL:          client.AuthCodeURL(state),
		ClientID:              cfg.ClientID,
		RedirectURI:           cfg.RedirectURI,
		Scope:                 strings.Join(DefaultScopes, " "),
	}, nil
}

// Endpoints are the provider's OAuth2 endpoints
type Endpoints struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
}

// discover reads the discovery document. Failures yield empty endpoints so
// callers fall back to issuer-relative paths.
func (p *Provider) discover(ctx context.Context, issuer string) Endpoints {
	var out Endpoints
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, issuerURL(issuer, ".well-known/openid-configuration"), nil)
	if err != nil {
		return out
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return out
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return out
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return out
}

func issuerURL(issuer, path string) string {
	return strings.TrimRight(issuer, "/") + "/" + path
}

// domainBaseURL returns the hosted-UI base URL for Cognito issuers that have a
// domain configured
func domainBaseURL(cfg *models.OIDCConfig) string {
	if cfg.Domain == nil || *cfg.Domain == "" || !strings.Contains(cfg.Issuer, "cognito-idp.") {
		return ""
	}
	domain := strings.TrimRight(*cfg.Domain, "/")
	if strings.HasPrefix(domain, "https://") {
		return domain
	}
	return "https://" + domain
}
