package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/benvon/smart-snippets/internal/config"
	"github.com/benvon/smart-snippets/internal/database"
)

// withDB loads configuration, opens the database and hands it to fn. The
// connection is closed when fn returns.
func withDB(fn func(ctx context.Context, db *database.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()
	return fn(context.Background(), db)
}
