package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/smart-snippets/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

const (
	minSecretLength = 16
	// DefaultTokenTTL is the lifetime of tokens minted without an explicit duration
	DefaultTokenTTL = 24 * time.Hour
)

// TokenService mints and verifies HS256 tokens signed with a shared secret.
// It serves deployments without an identity provider.
type TokenService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

type secretClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// NewTokenService creates a TokenService. The secret must be at least 16 characters.
func NewTokenService(secret, issuer string) (*TokenService, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("JWT secret must be at least %d characters", minSecretLength)
	}
	if issuer == "" {
		return nil, errors.New("JWT issuer is required")
	}
	return &TokenService{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Generate signs a token for subject valid for ttl. A non-positive ttl uses DefaultTokenTTL.
func (s *TokenService) Generate(subject, email, name string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := s.now()
	claims := secretClaims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify implements TokenVerifier. Only HS256 tokens from the configured
// issuer with an expiry are accepted.
func (s *TokenService) Verify(_ context.Context, tokenString string) (*models.JWTClaims, error) {
	claims := &secretClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}

	out := &models.JWTClaims{
		Sub:   claims.Subject,
		Iss:   claims.Issuer,
		Email: claims.Email,
		Name:  claims.Name,
	}
	if claims.ExpiresAt != nil {
		out.Exp = claims.ExpiresAt.Unix()
	}
	return out, nil
}

var _ TokenVerifier = (*TokenService)(nil)
