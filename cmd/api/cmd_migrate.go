package main

import (
	"github.com/spf13/cobra"

	"nutriflow/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireDatabase(); err != nil {
			return err
		}
		return store.Migrate(cfg.DatabaseDriver, cfg.DatabaseURL, logger)
	},
}
