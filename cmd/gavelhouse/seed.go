// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gavelhouse/gavelhouse/internal/host"
	"github.com/gavelhouse/gavelhouse/internal/market"
	marketpg "github.com/gavelhouse/gavelhouse/internal/market/postgres"
	"github.com/gavelhouse/gavelhouse/internal/store"
)

const defaultSeedTimeout = 30 * time.Second

// seedFile is the YAML shape accepted by the seed command.
type seedFile struct {
	Sites []seedSite `yaml:"sites"`
}

type seedSite struct {
	Name                     string     `yaml:"name"`
	Timezone                 int        `yaml:"timezone"`
	SessionExpirationSeconds int        `yaml:"session_expiration_seconds"`
	MinimumBidIncrement      float64    `yaml:"minimum_bid_increment"`
	Users                    []seedUser `yaml:"users"`
}

type seedUser struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// defaultSeed is used when no seed file is given.
var defaultSeed = seedFile{
	Sites: []seedSite{
		{
			Name:                     "demo",
			Timezone:                 0,
			SessionExpirationSeconds: 3600,
			MinimumBidIncrement:      1,
			Users: []seedUser{
				{Username: "alice", Password: "correct-horse"},
				{Username: "bob", Password: "battery-staple"},
			},
		},
	},
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed sites and users",
		Long: `Creates sites and users from a YAML seed file, or a demo site when
no file is given. This command is idempotent: sites and users that
already exist are skipped.`,
		RunE: runSeed,
	}

	cmd.Flags().String("database.url", "", "PostgreSQL connection string")
	cmd.Flags().String("file", "", "YAML seed file path")
	cmd.Flags().Duration("timeout", defaultSeedTimeout, "timeout for database operations")

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	}

	seed := defaultSeed
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return oops.Code("SEED_FILE_FAILED").With("path", path).Wrap(readErr)
		}
		seed = seedFile{}
		if yamlErr := yaml.Unmarshal(data, &seed); yamlErr != nil {
			return oops.Code("SEED_FILE_FAILED").With("path", path).Wrap(yamlErr)
		}
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	db, err := store.NewPostgres(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	pool := db.Pool()
	registry := host.NewRegistry(host.RegistryConfig{
		Sites:      marketpg.NewSiteRepository(pool),
		Users:      marketpg.NewUserRepository(pool),
		Sessions:   marketpg.NewSessionRepository(pool),
		Auctions:   marketpg.NewAuctionRepository(pool),
		Transactor: marketpg.NewTransactor(pool),
	})

	for _, site := range seed.Sites {
		if err := seedOneSite(ctx, cmd, registry, site); err != nil {
			return err
		}
	}

	cmd.Println("Seeding complete")
	return nil
}

func seedOneSite(ctx context.Context, cmd *cobra.Command, registry *host.Registry, site seedSite) error {
	err := registry.CreateSite(ctx, site.Name, site.Timezone, site.SessionExpirationSeconds, site.MinimumBidIncrement)
	switch {
	case errors.Is(err, market.ErrNameInUse):
		cmd.Printf("Site %q already exists, skipping\n", site.Name)
	case err != nil:
		return oops.Code("SEED_FAILED").With("site", site.Name).Wrap(err)
	default:
		cmd.Printf("Created site %q\n", site.Name)
	}

	svc, err := registry.LoadSite(ctx, site.Name)
	if err != nil {
		return oops.Code("SEED_FAILED").With("site", site.Name).Wrap(err)
	}
	defer svc.Close()

	for _, user := range site.Users {
		err := svc.CreateUser(ctx, user.Username, user.Password)
		switch {
		case errors.Is(err, market.ErrNameInUse):
			cmd.Printf("  user %q already exists, skipping\n", user.Username)
		case err != nil:
			return oops.Code("SEED_FAILED").
				With("site", site.Name).
				With("username", user.Username).
				Wrap(err)
		default:
			cmd.Printf("  created user %q\n", user.Username)
		}
	}
	return nil
}
