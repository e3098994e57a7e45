// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gavelhouse/gavelhouse/internal/host"
	"github.com/gavelhouse/gavelhouse/internal/logging"
	"github.com/gavelhouse/gavelhouse/internal/market"
	marketpg "github.com/gavelhouse/gavelhouse/internal/market/postgres"
	"github.com/gavelhouse/gavelhouse/internal/observability"
	"github.com/gavelhouse/gavelhouse/internal/store"
	"github.com/gavelhouse/gavelhouse/pkg/errutil"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the marketplace engine",
		Long: `Loads every registered site, starts its expired-session sweeper,
and serves metrics and health endpoints until interrupted.`,
		RunE: runServe,
	}

	cmd.Flags().String("database.url", "", "PostgreSQL connection string")
	cmd.Flags().String("metrics.addr", "", "metrics listen address")
	cmd.Flags().String("log.level", "", "log level (debug, info, warn, error)")
	cmd.Flags().String("log.format", "", "log format (json, text)")
	cmd.Flags().Duration("sweep.period", 0, "expired session sweep period")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	}

	logging.SetDefault(logging.Options{
		Service: "gavelhouse",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	})
	logger := slog.Default()

	ctx := cmd.Context()

	db, err := store.NewPostgres(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	pool := db.Pool()
	registry := host.NewRegistry(host.RegistryConfig{
		Sites:       marketpg.NewSiteRepository(pool),
		Users:       marketpg.NewUserRepository(pool),
		Sessions:    marketpg.NewSessionRepository(pool),
		Auctions:    marketpg.NewAuctionRepository(pool),
		Transactor:  marketpg.NewTransactor(pool),
		SweepPeriod: cfg.Sweep.Period,
		Logger:      logger,
	})

	obsServer := observability.NewServer(cfg.Metrics.Addr, func() bool {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return db.Ping(pingCtx) == nil
	})
	obsErrCh, err := obsServer.Start()
	if err != nil {
		return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
	}

	services, err := loadAllSites(ctx, registry)
	if err != nil {
		errutil.LogError(logger, "failed to load sites", err)
		stopObservability(obsServer)
		return err
	}
	obsServer.Metrics().SitesLoaded.Set(float64(len(services)))
	logger.Info("marketplace running",
		"sites", len(services),
		"metrics_addr", obsServer.Addr())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-obsErrCh:
		if err != nil {
			logger.Error("observability server failed", "error", err)
		}
	case <-ctx.Done():
	}

	for _, svc := range services {
		svc.Close()
	}
	stopObservability(obsServer)
	return nil
}

func loadAllSites(ctx context.Context, registry *host.Registry) ([]*market.SiteService, error) {
	infos, err := registry.SiteInfos(ctx)
	if err != nil {
		return nil, err
	}

	services := make([]*market.SiteService, 0, len(infos))
	for _, info := range infos {
		svc, err := registry.LoadSite(ctx, info.Name)
		if err != nil {
			for _, loaded := range services {
				loaded.Close()
			}
			return nil, err
		}
		services = append(services, svc)
	}
	return services, nil
}

func stopObservability(s *observability.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		slog.Error("observability server stop failed", "error", err)
	}
}
