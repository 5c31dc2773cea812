package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/smart-snippets/internal/database"
	"github.com/benvon/smart-snippets/internal/models"
	"github.com/spf13/cobra"
)

// NewOIDCCmd creates the OIDC configuration command
func NewOIDCCmd() *cobra.Command {
	var issuer, domain, clientID, clientSecret, redirectURI, jwksURL string

	cmd := &cobra.Command{
		Use:   "oidc <provider-name>",
		Short: "Configure OIDC provider",
		Long:  "Create or update an OIDC provider used to sign in to the snippets API. The name is any identifier (e.g. 'cognito', 'okta').",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := strings.TrimSpace(args[0])
			if provider == "" {
				return errors.New("provider name cannot be empty")
			}
			if issuer == "" || clientID == "" || redirectURI == "" {
				return errors.New("required flags: --issuer, --client-id, --redirect-uri (--client-secret is optional for public clients)")
			}
			issuer = strings.TrimSuffix(issuer, "/")
			if jwksURL == "" {
				jwksURL = issuer + "/.well-known/jwks.json"
			}

			return withDB(func(ctx context.Context, db *database.DB) error {
				cfg := &models.OIDCConfig{
					Provider:    provider,
					Issuer:      issuer,
					ClientID:    clientID,
					RedirectURI: redirectURI,
					JWKSUrl:     &jwksURL,
				}
				if domain != "" {
					cfg.Domain = &domain
				}
				if clientSecret != "" {
					cfg.ClientSecret = &clientSecret
				}

				created, err := database.NewOIDCConfigRepository(db).Save(ctx, cfg)
				if err != nil {
					return err
				}
				verb := "Updated"
				if created {
					verb = "Created"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s OIDC configuration for provider: %s\n", verb, provider)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&issuer, "issuer", "", "OIDC issuer URL (required)")
	cmd.Flags().StringVar(&domain, "domain", "", "Hosted login domain when it differs from the issuer (e.g. a Cognito custom domain)")
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth2 client ID (required)")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth2 client secret (optional for public clients)")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "OAuth2 redirect URI (required)")
	cmd.Flags().StringVar(&jwksURL, "jwks-url", "", "JWKS URL (defaults to <issuer>/.well-known/jwks.json)")

	return cmd
}
