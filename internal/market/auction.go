// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

package market

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Auction is a timed listing under the proxy-bidding protocol. The
// displayed CurrentPrice trails the true ceiling CurrentMaxOffer: before
// any bid both equal StartingPrice and no winner is set; once bids exist
// StartingPrice <= CurrentPrice <= CurrentMaxOffer holds.
type Auction struct {
	ID              ulid.ULID
	SiteID          ulid.ULID
	SellerID        ulid.ULID
	Description     string
	EndsOn          time.Time
	StartingPrice   float64
	CurrentPrice    float64
	CurrentMaxOffer float64
	WinnerID        *ulid.ULID
	CreatedAt       time.Time
}

// NewAuction creates a validated Auction with no bids.
func NewAuction(siteID, sellerID ulid.ULID, description string, endsOn time.Time, startingPrice float64, now time.Time) (*Auction, error) {
	if description == "" {
		return nil, oops.Code("AUCTION_EMPTY_DESCRIPTION").
			Wrapf(ErrInvalidArgument, "description cannot be empty")
	}
	if startingPrice < 0 {
		return nil, oops.Code("AUCTION_NEGATIVE_PRICE").
			With("starting_price", startingPrice).
			Wrapf(ErrOutOfRange, "starting price cannot be negative")
	}
	if !endsOn.After(now) {
		return nil, oops.Code("AUCTION_ENDS_IN_PAST").
			With("ends_on", endsOn).
			With("now", now).
			Wrapf(ErrTimeMachine, "end time must be strictly in the future")
	}

	return &Auction{
		ID:              ulid.Make(),
		SiteID:          siteID,
		SellerID:        sellerID,
		Description:     description,
		EndsOn:          endsOn,
		StartingPrice:   startingPrice,
		CurrentPrice:    startingPrice,
		CurrentMaxOffer: startingPrice,
		CreatedAt:       now,
	}, nil
}

// Ended reports whether the auction has ended at the given time.
func (a *Auction) Ended(now time.Time) bool {
	return !a.EndsOn.After(now)
}

// AuctionRepository manages auction persistence.
type AuctionRepository interface {
	// Create stores a new auction.
	Create(ctx context.Context, auction *Auction) error

	// Get retrieves an auction by ID.
	Get(ctx context.Context, id ulid.ULID) (*Auction, error)

	// GetForUpdate retrieves an auction by ID, locking its row for the
	// remainder of the surrounding transaction. Callers use this to make
	// the bid read-evaluate-write cycle atomic per auction.
	GetForUpdate(ctx context.Context, id ulid.ULID) (*Auction, error)

	// UpdateBidState persists the price, max offer, and winner fields.
	UpdateBidState(ctx context.Context, auction *Auction) error

	// Delete removes an auction. A second delete surfaces ErrNotFound.
	Delete(ctx context.Context, id ulid.ULID) error

	// ListBySite returns a site's auctions, optionally only those not
	// yet ended at the given time.
	ListBySite(ctx context.Context, siteID ulid.ULID, onlyNotEnded bool, now time.Time) ([]*Auction, error)

	// ListWonByUser returns the ended auctions whose current winner is
	// the given user.
	ListWonByUser(ctx context.Context, userID ulid.ULID, now time.Time) ([]*Auction, error)

	// CountOpenByUser counts the not-yet-ended auctions the user owns or
	// is currently winning. A non-zero count blocks user deletion.
	CountOpenByUser(ctx context.Context, userID ulid.ULID, now time.Time) (int64, error)

	// DeleteEndedByOwner removes the ended auctions owned by the user.
	DeleteEndedByOwner(ctx context.Context, userID ulid.ULID, now time.Time) error
}
