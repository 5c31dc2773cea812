package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/benvon/smart-snippets/internal/middleware"
)

const testSecret = "cli-test-secret-0123456789"

func TestTokenCmd(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/snippets_test")
	t.Setenv("AUTH_MODE", "secret")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("JWT_ISSUER", "snippets-cli-test")

	cmd := NewTokenCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"dev-user", "--email", "dev@example.com", "--ttl", "1h"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if errOut.Len() != 0 {
		t.Errorf("Expected no warnings, got %q", errOut.String())
	}

	tokens, err := middleware.NewTokenService(testSecret, "snippets-cli-test")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := tokens.Verify(context.Background(), strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("Expected minted token to verify, got %v", err)
	}
	if claims.Sub != "dev-user" || claims.Email != "dev@example.com" {
		t.Errorf("Unexpected claims %+v", claims)
	}
}

func TestTokenCmd_WarnsOutsideSecretMode(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/snippets_test")
	t.Setenv("AUTH_MODE", "oidc")
	t.Setenv("JWT_SECRET", testSecret)

	cmd := NewTokenCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"dev-user"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(errOut.String(), "Warning") {
		t.Errorf("Expected a warning, got %q", errOut.String())
	}
}

func TestTokenCmd_RejectsShortSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/snippets_test")
	t.Setenv("AUTH_MODE", "oidc")
	t.Setenv("JWT_SECRET", "short")

	cmd := NewTokenCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"dev-user"})
	if err := cmd.Execute(); err == nil {
		t.Error("Expected error for short secret")
	}
}
