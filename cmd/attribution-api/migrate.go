package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"example.com/attribution/internal/config"
	spg "example.com/attribution/internal/storage/postgres"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Parse()
			log, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := spg.Connect(cmd.Context(), cfg.PostgresDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := db.RunMigrations(cmd.Context(), cfg.MigrationsDir)
			if err != nil {
				return err
			}
			log.Info("migrations applied", zap.Strings("files", applied))
			return nil
		},
	}
}
