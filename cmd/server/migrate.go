package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sgst/sgst-api/internal/config"
	"github.com/sgst/sgst-api/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if err := database.MigrateUp(cfg); err != nil {
			return err
		}
		newLogger(cfg.Env).Info("migrations applied")
		return nil
	},
}

var migrateDownSteps int

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if err := database.MigrateDown(cfg, migrateDownSteps); err != nil {
			return err
		}
		newLogger(cfg.Env).Info("migrations rolled back", slog.Int("steps", migrateDownSteps))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateDownCmd.Flags().IntVar(&migrateDownSteps, "steps", 1, "number of migrations to roll back")
}
