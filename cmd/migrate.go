package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/courtsense/courtsense/db"
	"github.com/courtsense/courtsense/internal/config"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			if err := db.Migrate(cfg.PostgresURL()); err != nil {
				return err
			}
			fmt.Println("Migrations applied")
			return nil
		},
	}
}
