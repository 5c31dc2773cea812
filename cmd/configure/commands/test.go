package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/benvon/smart-snippets/internal/database"
	"github.com/benvon/smart-snippets/internal/services/oidc"
	"github.com/spf13/cobra"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test OIDC configuration",
		Long:  "Check that a provider's discovery document is reachable and its JWKS parses",
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider == "" {
				return errors.New("--provider is required")
			}

			return withDB(func(ctx context.Context, db *database.DB) error {
				cfg, err := database.NewOIDCConfigRepository(db).GetByProvider(ctx, provider)
				if err != nil {
					return fmt.Errorf("failed to get OIDC config: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Testing OIDC configuration for provider: %s\n", provider)
				fmt.Fprintf(out, "Issuer: %s\n", cfg.Issuer)

				ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
				defer cancel()

				discoveryURL := cfg.Issuer + "/.well-known/openid-configuration"
				fmt.Fprintf(out, "\nTesting discovery endpoint: %s\n", discoveryURL)
				if err := checkReachable(ctx, discoveryURL); err != nil {
					return fmt.Errorf("discovery endpoint: %w", err)
				}
				fmt.Fprintln(out, "✓ Discovery endpoint is accessible")

				if cfg.JWKSUrl != nil {
					fmt.Fprintf(out, "\nFetching JWKS: %s\n", *cfg.JWKSUrl)
					set, err := oidc.NewJWKSManager().GetJWKS(ctx, *cfg.JWKSUrl)
					if err != nil {
						return fmt.Errorf("JWKS endpoint: %w", err)
					}
					fmt.Fprintf(out, "✓ JWKS parsed with %d key(s)\n", set.Len())
				}

				fmt.Fprintln(out, "\n✓ OIDC configuration test passed")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider name to test (required)")

	return cmd
}

func checkReachable(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close response body: %v\n", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("returned status %d", resp.StatusCode)
	}
	return nil
}
