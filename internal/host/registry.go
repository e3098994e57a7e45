// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

// Package host is the entry point into the marketplace: a catalog of
// sites by unique name, from which loaded sites are handed out as
// ready-to-use aggregates.
package host

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/gavelhouse/gavelhouse/internal/auth"
	"github.com/gavelhouse/gavelhouse/internal/clock"
	"github.com/gavelhouse/gavelhouse/internal/market"
)

// RegistryConfig holds the dependencies for a Registry.
type RegistryConfig struct {
	Sites       market.SiteRepository
	Users       market.UserRepository
	Sessions    market.SessionRepository
	Auctions    market.AuctionRepository
	Transactor  market.Transactor
	Clocks      clock.Factory
	Hasher      auth.PasswordHasher
	SweepPeriod time.Duration
	Logger      *slog.Logger
}

// Registry is the catalog of sites.
type Registry struct {
	sites       market.SiteRepository
	users       market.UserRepository
	sessions    market.SessionRepository
	auctions    market.AuctionRepository
	tx          market.Transactor
	clocks      clock.Factory
	hasher      auth.PasswordHasher
	sweepPeriod time.Duration
	logger      *slog.Logger
}

// NewRegistry creates a Registry. Nil Clocks defaults to the system
// clock factory, nil Hasher to the PBKDF2 hasher, nil Logger to
// slog.Default().
func NewRegistry(cfg RegistryConfig) *Registry {
	clocks := cfg.Clocks
	if clocks == nil {
		clocks = clock.NewSystemFactory()
	}
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = auth.NewPBKDF2Hasher()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sites:       cfg.Sites,
		users:       cfg.Users,
		sessions:    cfg.Sessions,
		auctions:    cfg.Auctions,
		tx:          cfg.Transactor,
		clocks:      clocks,
		hasher:      hasher,
		sweepPeriod: cfg.SweepPeriod,
		logger:      logger,
	}
}

// CreateSite registers a new site after validating its parameters. A
// taken name surfaces market.ErrNameInUse.
func (r *Registry) CreateSite(ctx context.Context, name string, timezone, sessionExpirationSeconds int, minimumBidIncrement float64) error {
	site, err := market.NewSite(name, timezone, sessionExpirationSeconds, minimumBidIncrement)
	if err != nil {
		return err
	}
	if err := r.sites.Create(ctx, site); err != nil {
		return oops.Code("REGISTRY_CREATE_SITE_FAILED").
			With("name", name).
			Wrap(err)
	}
	r.logger.Info("site created", "name", name, "timezone", timezone)
	return nil
}

// LoadSite builds the aggregate service for a named site and starts its
// periodic session sweep. The caller owns the returned service and
// closes it when done.
func (r *Registry) LoadSite(ctx context.Context, name string) (*market.SiteService, error) {
	if err := market.ValidateSiteName(name); err != nil {
		return nil, err
	}

	site, err := r.sites.GetByName(ctx, name)
	if err != nil {
		return nil, oops.Code("REGISTRY_LOAD_SITE_FAILED").
			With("name", name).
			Wrap(err)
	}

	svc := market.NewSiteService(market.ServiceConfig{
		Site:        site,
		Clock:       r.clocks.InstantiateAlarmClock(site.Timezone),
		Hasher:      r.hasher,
		Sites:       r.sites,
		Users:       r.users,
		Sessions:    r.sessions,
		Auctions:    r.auctions,
		Transactor:  r.tx,
		SweepPeriod: r.sweepPeriod,
		Logger:      r.logger,
	})
	svc.StartSweeper()

	r.logger.Debug("site loaded", "name", name)
	return svc, nil
}

// SiteInfos returns the catalog of (name, timezone) entries.
func (r *Registry) SiteInfos(ctx context.Context) ([]market.SiteInfo, error) {
	sites, err := r.sites.List(ctx)
	if err != nil {
		return nil, oops.Code("REGISTRY_LIST_FAILED").Wrap(err)
	}

	infos := make([]market.SiteInfo, 0, len(sites))
	for _, site := range sites {
		infos = append(infos, market.SiteInfo{Name: site.Name, Timezone: site.Timezone})
	}
	return infos, nil
}
