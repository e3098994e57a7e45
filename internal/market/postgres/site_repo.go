// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gavelhouse/gavelhouse/internal/market"
)

// SiteRepository implements market.SiteRepository using PostgreSQL.
type SiteRepository struct {
	db DB
}

// NewSiteRepository creates a new SiteRepository.
func NewSiteRepository(db DB) *SiteRepository {
	return &SiteRepository{db: db}
}

// Create stores a new site. Duplicate names surface market.ErrNameInUse.
func (r *SiteRepository) Create(ctx context.Context, site *market.Site) error {
	_, err := dbOrTx(ctx, r.db).Exec(ctx, `
		INSERT INTO sites (id, name, timezone, session_expiration_seconds, minimum_bid_increment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		site.ID.String(),
		site.Name,
		site.Timezone,
		site.SessionExpirationSeconds,
		site.MinimumBidIncrement,
		site.CreatedAt,
	)
	if err != nil {
		return oops.Code("SITE_CREATE_FAILED").
			With("name", site.Name).
			Wrap(mapStoreError(err))
	}
	return nil
}

// GetByName retrieves a site by its unique name.
func (r *SiteRepository) GetByName(ctx context.Context, name string) (*market.Site, error) {
	row := dbOrTx(ctx, r.db).QueryRow(ctx, `
		SELECT id, name, timezone, session_expiration_seconds, minimum_bid_increment, created_at
		FROM sites
		WHERE name = $1
	`, name)

	site, err := scanSite(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SITE_NOT_FOUND").
			With("name", name).
			Wrap(market.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SITE_GET_FAILED").
			With("name", name).
			Wrap(mapStoreError(err))
	}
	return site, nil
}

// List returns all sites ordered by name.
func (r *SiteRepository) List(ctx context.Context) ([]*market.Site, error) {
	rows, err := dbOrTx(ctx, r.db).Query(ctx, `
		SELECT id, name, timezone, session_expiration_seconds, minimum_bid_increment, created_at
		FROM sites
		ORDER BY name
	`)
	if err != nil {
		return nil, oops.Code("SITE_LIST_FAILED").Wrap(mapStoreError(err))
	}
	defer rows.Close()

	var sites []*market.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, oops.Code("SITE_SCAN_FAILED").Wrap(err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("SITE_ROWS_ERROR").Wrap(mapStoreError(err))
	}
	return sites, nil
}

// Delete removes a site record.
func (r *SiteRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := dbOrTx(ctx, r.db).Exec(ctx, `
		DELETE FROM sites WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("SITE_DELETE_FAILED").
			With("id", id.String()).
			Wrap(mapStoreError(err))
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SITE_NOT_FOUND").
			With("id", id.String()).
			Wrap(market.ErrNotFound)
	}
	return nil
}

func scanSite(row pgx.Row) (*market.Site, error) {
	var (
		idStr      string
		name       string
		timezone   int
		expiration int
		increment  float64
		createdAt  time.Time
	)
	if err := row.Scan(&idStr, &name, &timezone, &expiration, &increment, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context
		}
		return nil, oops.With("operation", "scan site").Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("operation", "parse site id").With("id", idStr).Wrap(err)
	}

	return &market.Site{
		ID:                       id,
		Name:                     name,
		Timezone:                 timezone,
		SessionExpirationSeconds: expiration,
		MinimumBidIncrement:      increment,
		CreatedAt:                createdAt,
	}, nil
}

// Compile-time interface check.
var _ market.SiteRepository = (*SiteRepository)(nil)
