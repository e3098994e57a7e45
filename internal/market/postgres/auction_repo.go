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

const auctionColumns = `id, site_id, seller_id, description, ends_on, starting_price, current_price, current_max_offer, winner_id, created_at`

// AuctionRepository implements market.AuctionRepository using
// PostgreSQL.
type AuctionRepository struct {
	db DB
}

// NewAuctionRepository creates a new AuctionRepository.
func NewAuctionRepository(db DB) *AuctionRepository {
	return &AuctionRepository{db: db}
}

// Create stores a new auction.
func (r *AuctionRepository) Create(ctx context.Context, auction *market.Auction) error {
	_, err := dbOrTx(ctx, r.db).Exec(ctx, `
		INSERT INTO auctions (`+auctionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		auction.ID.String(),
		auction.SiteID.String(),
		auction.SellerID.String(),
		auction.Description,
		auction.EndsOn,
		auction.StartingPrice,
		auction.CurrentPrice,
		auction.CurrentMaxOffer,
		ulidToStringPtr(auction.WinnerID),
		auction.CreatedAt,
	)
	if err != nil {
		return oops.Code("AUCTION_INSERT_FAILED").
			With("seller_id", auction.SellerID.String()).
			Wrap(mapStoreError(err))
	}
	return nil
}

// Get retrieves an auction by ID.
func (r *AuctionRepository) Get(ctx context.Context, id ulid.ULID) (*market.Auction, error) {
	row := dbOrTx(ctx, r.db).QueryRow(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE id = $1
	`, id.String())
	return r.one(row, id)
}

// GetForUpdate retrieves an auction and locks its row for the rest of
// the surrounding transaction.
func (r *AuctionRepository) GetForUpdate(ctx context.Context, id ulid.ULID) (*market.Auction, error) {
	row := dbOrTx(ctx, r.db).QueryRow(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE id = $1
		FOR UPDATE
	`, id.String())
	return r.one(row, id)
}

func (r *AuctionRepository) one(row pgx.Row, id ulid.ULID) (*market.Auction, error) {
	auction, err := scanAuction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("AUCTION_NOT_FOUND").
			With("id", id.String()).
			Wrap(market.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("AUCTION_GET_FAILED").
			With("id", id.String()).
			Wrap(mapStoreError(err))
	}
	return auction, nil
}

// UpdateBidState persists price, max offer, and winner.
func (r *AuctionRepository) UpdateBidState(ctx context.Context, auction *market.Auction) error {
	result, err := dbOrTx(ctx, r.db).Exec(ctx, `
		UPDATE auctions
		SET current_price = $2, current_max_offer = $3, winner_id = $4
		WHERE id = $1
	`,
		auction.ID.String(),
		auction.CurrentPrice,
		auction.CurrentMaxOffer,
		ulidToStringPtr(auction.WinnerID),
	)
	if err != nil {
		return oops.Code("AUCTION_UPDATE_FAILED").
			With("id", auction.ID.String()).
			Wrap(mapStoreError(err))
	}
	if result.RowsAffected() == 0 {
		return oops.Code("AUCTION_NOT_FOUND").
			With("id", auction.ID.String()).
			Wrap(market.ErrNotFound)
	}
	return nil
}

// Delete removes an auction.
func (r *AuctionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := dbOrTx(ctx, r.db).Exec(ctx, `
		DELETE FROM auctions WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("AUCTION_DELETE_FAILED").
			With("id", id.String()).
			Wrap(mapStoreError(err))
	}
	if result.RowsAffected() == 0 {
		return oops.Code("AUCTION_NOT_FOUND").
			With("id", id.String()).
			Wrap(market.ErrNotFound)
	}
	return nil
}

// ListBySite returns a site's auctions, optionally only those not yet
// ended at now.
func (r *AuctionRepository) ListBySite(ctx context.Context, siteID ulid.ULID, onlyNotEnded bool, now time.Time) ([]*market.Auction, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if onlyNotEnded {
		rows, err = dbOrTx(ctx, r.db).Query(ctx, `
			SELECT `+auctionColumns+`
			FROM auctions
			WHERE site_id = $1 AND ends_on > $2
			ORDER BY ends_on
		`, siteID.String(), now)
	} else {
		rows, err = dbOrTx(ctx, r.db).Query(ctx, `
			SELECT `+auctionColumns+`
			FROM auctions
			WHERE site_id = $1
			ORDER BY ends_on
		`, siteID.String())
	}
	if err != nil {
		return nil, oops.Code("AUCTION_LIST_FAILED").
			With("site_id", siteID.String()).
			Wrap(mapStoreError(err))
	}
	return collectAuctions(rows)
}

// ListWonByUser returns the ended auctions whose current winner is the
// user.
func (r *AuctionRepository) ListWonByUser(ctx context.Context, userID ulid.ULID, now time.Time) ([]*market.Auction, error) {
	rows, err := dbOrTx(ctx, r.db).Query(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE winner_id = $1 AND ends_on <= $2
		ORDER BY ends_on
	`, userID.String(), now)
	if err != nil {
		return nil, oops.Code("AUCTION_LIST_WON_FAILED").
			With("user_id", userID.String()).
			Wrap(mapStoreError(err))
	}
	return collectAuctions(rows)
}

// CountOpenByUser counts not-yet-ended auctions the user owns or is
// winning.
func (r *AuctionRepository) CountOpenByUser(ctx context.Context, userID ulid.ULID, now time.Time) (int64, error) {
	var count int64
	err := dbOrTx(ctx, r.db).QueryRow(ctx, `
		SELECT COUNT(*)
		FROM auctions
		WHERE (seller_id = $1 OR winner_id = $1) AND ends_on > $2
	`, userID.String(), now).Scan(&count)
	if err != nil {
		return 0, oops.Code("AUCTION_COUNT_OPEN_FAILED").
			With("user_id", userID.String()).
			Wrap(mapStoreError(err))
	}
	return count, nil
}

// DeleteEndedByOwner removes the ended auctions owned by the user.
func (r *AuctionRepository) DeleteEndedByOwner(ctx context.Context, userID ulid.ULID, now time.Time) error {
	_, err := dbOrTx(ctx, r.db).Exec(ctx, `
		DELETE FROM auctions WHERE seller_id = $1 AND ends_on <= $2
	`, userID.String(), now)
	if err != nil {
		return oops.Code("AUCTION_DELETE_ENDED_FAILED").
			With("user_id", userID.String()).
			Wrap(mapStoreError(err))
	}
	return nil
}

func collectAuctions(rows pgx.Rows) ([]*market.Auction, error) {
	defer rows.Close()

	var auctions []*market.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, oops.Code("AUCTION_SCAN_FAILED").Wrap(err)
		}
		auctions = append(auctions, auction)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("AUCTION_ROWS_ERROR").Wrap(mapStoreError(err))
	}
	return auctions, nil
}

func scanAuction(row pgx.Row) (*market.Auction, error) {
	var (
		idStr       string
		siteIDStr   string
		sellerIDStr string
		description string
		endsOn      time.Time
		starting    float64
		price       float64
		maxOffer    float64
		winnerIDStr *string
		createdAt   time.Time
	)
	err := row.Scan(&idStr, &siteIDStr, &sellerIDStr, &description, &endsOn, &starting, &price, &maxOffer, &winnerIDStr, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context
		}
		return nil, oops.With("operation", "scan auction").Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("operation", "parse auction id").With("id", idStr).Wrap(err)
	}
	siteID, err := ulid.Parse(siteIDStr)
	if err != nil {
		return nil, oops.With("operation", "parse site id").With("site_id", siteIDStr).Wrap(err)
	}
	sellerID, err := ulid.Parse(sellerIDStr)
	if err != nil {
		return nil, oops.With("operation", "parse seller id").With("seller_id", sellerIDStr).Wrap(err)
	}
	winnerID, err := parseOptionalULID(winnerIDStr, "winner_id")
	if err != nil {
		return nil, err
	}

	return &market.Auction{
		ID:              id,
		SiteID:          siteID,
		SellerID:        sellerID,
		Description:     description,
		EndsOn:          endsOn,
		StartingPrice:   starting,
		CurrentPrice:    price,
		CurrentMaxOffer: maxOffer,
		WinnerID:        winnerID,
		CreatedAt:       createdAt,
	}, nil
}

// Compile-time interface check.
var _ market.AuctionRepository = (*AuctionRepository)(nil)
