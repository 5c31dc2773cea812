package oidc

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/smart-snippets/internal/models"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Verifier checks token signatures against a provider's key set
type Verifier struct {
	jwksManager *JWKSManager
	issuer      string
}

// NewVerifier creates a verifier that only accepts tokens from issuer
func NewVerifier(jwksManager *JWKSManager, issuer string) *Verifier {
	return &Verifier{jwksManager: jwksManager, issuer: issuer}
}

// Verify checks signature, expiry and issuer, then extracts the identity claims
func (v *Verifier) Verify(ctx context.Context, tokenString, jwksURL string) (*models.JWTClaims, error) {
	keys, err := v.jwksManager.GetJWKS(ctx, jwksURL)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse/verify token: %w", err)
	}
	return claimsFromToken(token)
}

func claimsFromToken(token jwt.Token) (*models.JWTClaims, error) {
	if token.Subject() == "" {
		return nil, errors.New("token has no subject")
	}
	claims := &models.JWTClaims{
		Sub: token.Subject(),
		Iss: token.Issuer(),
	}
	if exp := token.Expiration(); !exp.IsZero() {
		claims.Exp = exp.Unix()
	}
	if email, ok := token.Get("email"); ok {
		claims.Email, _ = email.(string)
	}
	if name, ok := token.Get("name"); ok {
		claims.Name, _ = name.(string)
	}
	return claims, nil
}

// ProviderVerifier verifies bearer tokens for one named provider, resolving
// its issuer and JWKS URL from stored settings on each call
type ProviderVerifier struct {
	provider     *Provider
	jwksManager  *JWKSManager
	providerName string
}

// NewProviderVerifier creates a verifier bound to providerName
func NewProviderVerifier(provider *Provider, jwksManager *JWKSManager, providerName string) *ProviderVerifier {
	return &ProviderVerifier{provider: provider, jwksManager: jwksManager, providerName: providerName}
}

// ErrUnavailable marks failures on the server side of verification: missing
// settings or an unreachable key set. The token itself was not judged.
var ErrUnavailable = errors.New("token verification unavailable")

// Verify validates tokenString against the provider's current settings
func (p *ProviderVerifier) Verify(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	cfg, err := p.provider.GetConfig(ctx, p.providerName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if cfg.JWKSUrl == nil || *cfg.JWKSUrl == "" {
		return nil, fmt.Errorf("%w: provider %s has no JWKS URL", ErrUnavailable, p.providerName)
	}
	if _, err := p.jwksManager.GetJWKS(ctx, *cfg.JWKSUrl); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return NewVerifier(p.jwksManager, cfg.Issuer).Verify(ctx, tokenString, *cfg.JWKSUrl)
}
