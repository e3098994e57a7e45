// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/gavelhouse/gavelhouse/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Gavelhouse CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gavelhouse",
		Short: "Gavelhouse - a multi-tenant auction marketplace engine",
		Long: `Gavelhouse hosts independent auction sites with proxy bidding,
sliding-expiration sessions, and per-site timezone clocks on a shared
PostgreSQL database.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}

// loadConfig reads the configuration file named by --config (optional)
// and overlays any flags registered on the command.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	return config.Load(configFile, cmd.Flags())
}
