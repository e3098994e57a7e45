// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

// Package market contains the auction marketplace domain: sites, users,
// sessions, auctions, the proxy-bidding engine, and the site aggregate
// service that coordinates them against the durable store.
package market

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Domain constraints for site and user identities.
const (
	MinSiteNameLength = 1
	MaxSiteNameLength = 128
	MinUsernameLength = 3
	MaxUsernameLength = 64
	MinPasswordLength = 4
	MinTimezone       = -12
	MaxTimezone       = 12
)

// Site is a tenant of the marketplace. It owns the lifecycle of its
// users, sessions, and auctions.
type Site struct {
	ID                       ulid.ULID
	Name                     string
	Timezone                 int
	SessionExpirationSeconds int
	MinimumBidIncrement      float64
	CreatedAt                time.Time
}

// NewSite creates a validated Site.
func NewSite(name string, timezone, sessionExpirationSeconds int, minimumBidIncrement float64) (*Site, error) {
	if err := ValidateSiteName(name); err != nil {
		return nil, err
	}
	if timezone < MinTimezone || timezone > MaxTimezone {
		return nil, oops.Code("SITE_INVALID_TIMEZONE").
			With("timezone", timezone).
			Wrapf(ErrOutOfRange, "timezone must be between %d and %d", MinTimezone, MaxTimezone)
	}
	if sessionExpirationSeconds <= 0 {
		return nil, oops.Code("SITE_INVALID_EXPIRATION").
			With("seconds", sessionExpirationSeconds).
			Wrapf(ErrOutOfRange, "session expiration must be positive")
	}
	if minimumBidIncrement <= 0 {
		return nil, oops.Code("SITE_INVALID_INCREMENT").
			With("increment", minimumBidIncrement).
			Wrapf(ErrOutOfRange, "minimum bid increment must be positive")
	}

	return &Site{
		ID:                       ulid.Make(),
		Name:                     name,
		Timezone:                 timezone,
		SessionExpirationSeconds: sessionExpirationSeconds,
		MinimumBidIncrement:      minimumBidIncrement,
		CreatedAt:                time.Now().UTC(),
	}, nil
}

// ValidateSiteName checks the site name length bounds.
func ValidateSiteName(name string) error {
	if len(name) < MinSiteNameLength || len(name) > MaxSiteNameLength {
		return oops.Code("SITE_INVALID_NAME").
			With("name", name).
			Wrapf(ErrInvalidArgument, "site name must be %d to %d characters", MinSiteNameLength, MaxSiteNameLength)
	}
	return nil
}

// SessionExpiration returns the sliding-window length for sessions.
func (s *Site) SessionExpiration() time.Duration {
	return time.Duration(s.SessionExpirationSeconds) * time.Second
}

// SiteInfo is the public catalog entry for a site.
type SiteInfo struct {
	Name     string
	Timezone int
}

// SiteRepository manages site persistence.
type SiteRepository interface {
	// Create stores a new site. Duplicate names surface ErrNameInUse.
	Create(ctx context.Context, site *Site) error

	// GetByName retrieves a site by its unique name.
	GetByName(ctx context.Context, name string) (*Site, error)

	// List returns the catalog of all sites.
	List(ctx context.Context) ([]*Site, error)

	// Delete removes a site record. The caller cascades users and
	// sessions first.
	Delete(ctx context.Context, id ulid.ULID) error
}
