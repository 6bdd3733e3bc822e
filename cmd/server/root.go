package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/config"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/logging"
)

const serviceName = "ekfc-users-ms"

// NewRootCmd creates the root command. Every setting is a persistent flag that
// defaults to its environment variable.
func NewRootCmd() *cobra.Command {
	config.LoadEnvFile()

	cmd := &cobra.Command{
		Use:          "ekfc",
		Short:        "Users and posts service",
		Long:         `Serves the account, authentication and post APIs over HTTP and the message queue.`,
		SilenceUsage: true,
	}
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewWorkerCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedAdminCmd())

	return cmd
}

// loadConfig resolves the configuration for cmd and installs the process logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	logger := logging.SetDefault(serviceName, version, cfg.LogFormat, cfg.LogLevel)
	return cfg, logger, nil
}
