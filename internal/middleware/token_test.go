package middleware

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-at-least-16-chars!!"

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(testSecret, "smart-snippets")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func TestNewTokenService(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		secret  string
		issuer  string
		wantErr bool
	}{
		{"short secret", "short", "iss", true},
		{"missing issuer", "this-is-16-chars", "", true},
		{"valid", "this-is-16-chars", "iss", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewTokenService(tt.secret, tt.issuer)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTokenService_RoundTrip(t *testing.T) {
	t.Parallel()

	ts := newTestTokenService(t)
	token, err := ts.Generate("user-123", "dev@example.com", "Dev", time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("Expected three JWT segments, got %q", token)
	}

	claims, err := ts.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Sub != "user-123" || claims.Email != "dev@example.com" || claims.Name != "Dev" || claims.Iss != "smart-snippets" {
		t.Errorf("Unexpected claims %+v", claims)
	}
	if claims.Exp == 0 {
		t.Error("Expected expiry to be set")
	}
}

func TestTokenService_GenerateRequiresSubject(t *testing.T) {
	t.Parallel()

	if _, err := newTestTokenService(t).Generate("", "", "", 0); err == nil {
		t.Error("Expected error for empty subject")
	}
}

func TestTokenService_Rejects(t *testing.T) {
	t.Parallel()

	ts := newTestTokenService(t)

	expired := newTestTokenService(t)
	expired.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	expiredToken, err := expired.Generate("user", "", "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	otherIssuer, err := NewTokenService(testSecret, "someone-else")
	if err != nil {
		t.Fatal(err)
	}
	foreignToken, err := otherIssuer.Generate("user", "", "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	otherSecret, err := NewTokenService("a-completely-different-secret", "smart-snippets")
	if err != nil {
		t.Fatal(err)
	}
	forgedToken, err := otherSecret.Generate("user", "", "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user",
		Issuer:    "smart-snippets",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "user",
		Issuer:  "smart-snippets",
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	tests := map[string]string{
		"expired":        expiredToken,
		"wrong issuer":   foreignToken,
		"wrong secret":   forgedToken,
		"alg none":       noneToken,
		"missing expiry": noExpiry,
		"garbage":        "not.a.token",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := ts.Verify(context.Background(), token); err == nil {
				t.Errorf("Expected %s token to be rejected", name)
			}
		})
	}
}
