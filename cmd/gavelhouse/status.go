// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gavelhouse/gavelhouse/internal/store"
)

const statusTimeout = 10 * time.Second

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check database connectivity and schema version",
		RunE:  runStatus,
	}

	cmd.Flags().String("database.url", "", "PostgreSQL connection string")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
	defer cancel()

	db, err := store.NewPostgres(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	cmd.Println("Database: reachable")

	migrator, err := store.NewMigrator(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer migrator.Close() //nolint:errcheck

	version, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	switch {
	case version == 0:
		cmd.Println("Schema: no migrations applied")
	case dirty:
		cmd.Printf("Schema: version %d (DIRTY, manual intervention required)\n", version)
	default:
		name, nameErr := store.MigrationName(version)
		if nameErr != nil {
			return nameErr
		}
		cmd.Printf("Schema: version %d (%s)\n", version, name)
	}
	return nil
}
