package oidc

import (
	"context"

	"github.com/benvon/smart-snippets/internal/models"
	"golang.org/x/oauth2"
)

// DefaultScopes are requested on every login
var DefaultScopes = []string{"openid", "email", "profile"}

// Client wraps the OAuth2 authorization code flow for one provider
type Client struct {
	config *oauth2.Config
}

// NewClient creates an OAuth2 client from stored settings and resolved endpoints
func NewClient(cfg *models.OIDCConfig, endpoints Endpoints) *Client {
	clientSecret := ""
	authStyle := oauth2.AuthStyleInParams
	if cfg.HasSecret() {
		clientSecret = *cfg.ClientSecret
		authStyle = oauth2.AuthStyleInHeader
	}

	return &Client{config: &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: clientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       DefaultScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   endpoints.AuthorizationEndpoint,
			TokenURL:  endpoints.TokenEndpoint,
			AuthStyle: authStyle,
		},
	}}
}

// AuthCodeURL returns the provider URL that starts a login carrying state
func (c *Client) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for tokens
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.config.Exchange(ctx, code)
}
