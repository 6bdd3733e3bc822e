package main

import (
	"github.com/spf13/cobra"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/database"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigration(cmd, (*database.Migrator).Up)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert every migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigration(cmd, (*database.Migrator).Down)
		},
	})
	return cmd
}

func runMigration(cmd *cobra.Command, step func(*database.Migrator) error) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	m, err := database.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	if err := step(m); err != nil {
		return err
	}
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	logger.Info("migrations complete", "version", version, "dirty", dirty)
	return nil
}
