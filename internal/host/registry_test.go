// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

package host

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavelhouse/gavelhouse/internal/clock/clocktest"
	"github.com/gavelhouse/gavelhouse/internal/market"
)

// stubSiteRepo is an in-memory market.SiteRepository keyed by name.
type stubSiteRepo struct {
	sites map[string]*market.Site
}

func newStubSiteRepo() *stubSiteRepo {
	return &stubSiteRepo{sites: make(map[string]*market.Site)}
}

func (r *stubSiteRepo) Create(_ context.Context, site *market.Site) error {
	if _, ok := r.sites[site.Name]; ok {
		return market.ErrNameInUse
	}
	copied := *site
	r.sites[site.Name] = &copied
	return nil
}

func (r *stubSiteRepo) GetByName(_ context.Context, name string) (*market.Site, error) {
	site, ok := r.sites[name]
	if !ok {
		return nil, market.ErrNotFound
	}
	copied := *site
	return &copied, nil
}

func (r *stubSiteRepo) List(_ context.Context) ([]*market.Site, error) {
	sites := make([]*market.Site, 0, len(r.sites))
	for _, site := range r.sites {
		copied := *site
		sites = append(sites, &copied)
	}
	return sites, nil
}

func (r *stubSiteRepo) Delete(_ context.Context, id ulid.ULID) error {
	for name, site := range r.sites {
		if site.ID == id {
			delete(r.sites, name)
			return nil
		}
	}
	return market.ErrNotFound
}

var _ market.SiteRepository = (*stubSiteRepo)(nil)

func testRegistry(repo *stubSiteRepo, manual *clocktest.Manual) *Registry {
	return NewRegistry(RegistryConfig{
		Sites:  repo,
		Clocks: manual,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestRegistry_CreateSite(t *testing.T) {
	ctx := context.Background()
	manual := clocktest.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	t.Run("registers valid site", func(t *testing.T) {
		repo := newStubSiteRepo()
		registry := testRegistry(repo, manual)

		require.NoError(t, registry.CreateSite(ctx, "estate-sales", 2, 1800, 0.5))
		site, err := repo.GetByName(ctx, "estate-sales")
		require.NoError(t, err)
		assert.Equal(t, 2, site.Timezone)
		assert.Equal(t, 1800, site.SessionExpirationSeconds)
	})

	t.Run("rejects invalid parameters without touching the store", func(t *testing.T) {
		repo := newStubSiteRepo()
		registry := testRegistry(repo, manual)

		require.ErrorIs(t, registry.CreateSite(ctx, "", 0, 1800, 0.5), market.ErrInvalidArgument)
		require.ErrorIs(t, registry.CreateSite(ctx, "far-west", -13, 1800, 0.5), market.ErrOutOfRange)
		require.ErrorIs(t, registry.CreateSite(ctx, "no-expiry", 0, 0, 0.5), market.ErrOutOfRange)
		assert.Empty(t, repo.sites)
	})

	t.Run("duplicate name", func(t *testing.T) {
		repo := newStubSiteRepo()
		registry := testRegistry(repo, manual)

		require.NoError(t, registry.CreateSite(ctx, "estate-sales", 0, 1800, 0.5))
		require.ErrorIs(t, registry.CreateSite(ctx, "estate-sales", 3, 600, 1), market.ErrNameInUse)
	})
}

func TestRegistry_LoadSite(t *testing.T) {
	ctx := context.Background()

	t.Run("returns a running service", func(t *testing.T) {
		manual := clocktest.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
		repo := newStubSiteRepo()
		registry := testRegistry(repo, manual)
		require.NoError(t, registry.CreateSite(ctx, "estate-sales", 0, 1800, 0.5))

		svc, err := registry.LoadSite(ctx, "estate-sales")
		require.NoError(t, err)
		defer svc.Close()

		// Loading arms the periodic session sweep.
		assert.Equal(t, 1, manual.Pending())
	})

	t.Run("unknown site", func(t *testing.T) {
		manual := clocktest.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
		registry := testRegistry(newStubSiteRepo(), manual)

		_, err := registry.LoadSite(ctx, "nowhere")
		require.ErrorIs(t, err, market.ErrNotFound)
	})

	t.Run("invalid name short-circuits", func(t *testing.T) {
		manual := clocktest.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
		registry := testRegistry(newStubSiteRepo(), manual)

		_, err := registry.LoadSite(ctx, "")
		require.ErrorIs(t, err, market.ErrInvalidArgument)
		assert.Zero(t, manual.Pending())
	})
}

func TestRegistry_SiteInfos(t *testing.T) {
	ctx := context.Background()
	manual := clocktest.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	repo := newStubSiteRepo()
	registry := testRegistry(repo, manual)

	require.NoError(t, registry.CreateSite(ctx, "estate-sales", 2, 1800, 0.5))
	require.NoError(t, registry.CreateSite(ctx, "rare-books", -5, 600, 1))

	infos, err := registry.SiteInfos(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	byName := make(map[string]market.SiteInfo, len(infos))
	for _, info := range infos {
		byName[info.Name] = info
	}
	assert.Equal(t, 2, byName["estate-sales"].Timezone)
	assert.Equal(t, -5, byName["rare-books"].Timezone)
}
