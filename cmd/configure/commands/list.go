package commands

import (
	"context"
	"fmt"

	"github.com/benvon/smart-snippets/internal/database"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured OIDC providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(ctx context.Context, db *database.DB) error {
				configs, err := database.NewOIDCConfigRepository(db).GetAll(ctx)
				if err != nil {
					return fmt.Errorf("failed to list OIDC configs: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(configs) == 0 {
					fmt.Fprintln(out, "No OIDC providers configured")
					return nil
				}

				fmt.Fprintln(out, "Configured OIDC providers:")
				for _, c := range configs {
					fmt.Fprintf(out, "  - Provider: %s\n", c.Provider)
					fmt.Fprintf(out, "    Issuer: %s\n", c.Issuer)
					fmt.Fprintf(out, "    Client ID: %s\n", c.ClientID)
					fmt.Fprintf(out, "    Client secret: %s\n", presence(c.HasSecret()))
					fmt.Fprintf(out, "    Redirect URI: %s\n", c.RedirectURI)
					if c.Domain != nil {
						fmt.Fprintf(out, "    Domain: %s\n", *c.Domain)
					}
					if c.JWKSUrl != nil {
						fmt.Fprintf(out, "    JWKS URL: %s\n", *c.JWKSUrl)
					}
					fmt.Fprintln(out)
				}
				return nil
			})
		},
	}
}

// NewRemoveCmd creates the command that deletes an OIDC provider
func NewRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <provider-name>",
		Short: "Remove an OIDC provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(ctx context.Context, db *database.DB) error {
				if err := database.NewOIDCConfigRepository(db).Delete(ctx, args[0]); err != nil {
					return fmt.Errorf("failed to remove OIDC config: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed OIDC configuration for provider: %s\n", args[0])
				return nil
			})
		},
	}
}

func presence(set bool) string {
	if set {
		return "set"
	}
	return "none (public client)"
}
