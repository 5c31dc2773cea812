package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/smart-snippets/internal/config"
	"github.com/benvon/smart-snippets/internal/middleware"
	"github.com/spf13/cobra"
)

// NewTokenCmd creates the command that mints a bearer token for AUTH_MODE=secret
func NewTokenCmd() *cobra.Command {
	var email, name string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Mint a bearer token signed with JWT_SECRET",
		Long: "Mint an HS256 bearer token for deployments running with AUTH_MODE=secret. " +
			"The subject identifies the owner; a user row is created on first use.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subject := strings.TrimSpace(args[0])
			if subject == "" {
				return errors.New("subject cannot be empty")
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.AuthMode != config.AuthModeSecret {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: AUTH_MODE is %q; the server will not accept this token\n", cfg.AuthMode)
			}

			tokens, err := middleware.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer)
			if err != nil {
				return err
			}
			token, err := tokens.Generate(subject, email, name, ttl)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().StringVar(&name, "name", "", "Display name claim")
	cmd.Flags().DurationVar(&ttl, "ttl", middleware.DefaultTokenTTL, "Token lifetime")

	return cmd
}
