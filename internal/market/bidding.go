// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

package market

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gavelhouse/gavelhouse/internal/observability"
)

// BidEngine evaluates bids under the proxy-bidding protocol. Each bid
// runs inside a single store transaction holding a row lock on the
// auction, so the read-evaluate-write cycle for one auction never
// interleaves with another bid on it.
type BidEngine struct {
	auctions AuctionRepository
	sessions *SessionManager
	tx       Transactor
	logger   *slog.Logger
}

// NewBidEngine creates a BidEngine. A nil logger defaults to
// slog.Default().
func NewBidEngine(auctions AuctionRepository, sessions *SessionManager, tx Transactor, logger *slog.Logger) *BidEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &BidEngine{auctions: auctions, sessions: sessions, tx: tx, logger: logger}
}

// PlaceBid evaluates an offer against the auction's current state and
// reports whether it was accepted. Preconditions, in order:
//
//  1. the auction must exist (ErrNotFound),
//  2. the session reference must be non-nil (ErrNilArgument),
//  3. the offer must be non-negative (ErrOutOfRange),
//  4. the session must resolve to a live, unexpired session whose user
//     is not the seller (ErrInvalidArgument for both failure modes).
//
// Passing the preconditions renews the session before the bid is
// evaluated, so a rejected-but-well-formed bid still counts as activity.
// Rejected bids leave the auction unchanged.
func (e *BidEngine) PlaceBid(ctx context.Context, site *Site, auctionID ulid.ULID, session *Session, offer float64, now time.Time) (bool, error) {
	var accepted bool

	err := e.tx.InTransaction(ctx, func(ctx context.Context) error {
		auction, err := e.auctions.GetForUpdate(ctx, auctionID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return oops.Code("BID_AUCTION_GONE").
					With("auction_id", auctionID.String()).
					Wrapf(ErrNotFound, "auction does not exist")
			}
			return oops.Code("BID_AUCTION_LOAD_FAILED").Wrap(err)
		}

		if session == nil {
			return oops.Code("BID_NIL_SESSION").
				Wrapf(ErrNilArgument, "session cannot be nil")
		}
		if offer < 0 {
			return oops.Code("BID_NEGATIVE_OFFER").
				With("offer", offer).
				Wrapf(ErrOutOfRange, "offer cannot be negative")
		}

		current, err := e.sessions.Get(ctx, session.ID)
		if errors.Is(err, ErrNotFound) {
			return oops.Code("BID_SESSION_GONE").
				With("session_id", session.ID.String()).
				Wrapf(ErrInvalidArgument, "session no longer exists")
		}
		if err != nil {
			return oops.Code("BID_SESSION_LOAD_FAILED").Wrap(err)
		}
		if current.ExpiredAt(now) {
			return oops.Code("BID_SESSION_EXPIRED").
				With("session_id", session.ID.String()).
				Wrapf(ErrInvalidArgument, "session has expired")
		}
		if current.UserID == auction.SellerID {
			return oops.Code("BID_SELF_BID").
				With("auction_id", auctionID.String()).
				Wrapf(ErrInvalidArgument, "seller cannot bid on own auction")
		}

		if err := e.sessions.Renew(ctx, site, current, now); err != nil {
			return err
		}
		session.ValidUntil = current.ValidUntil

		accepted = evaluate(auction, site.MinimumBidIncrement, current.UserID, offer)
		if !accepted {
			return nil
		}
		if err := e.auctions.UpdateBidState(ctx, auction); err != nil {
			return oops.Code("BID_PERSIST_FAILED").
				With("auction_id", auctionID.String()).
				Wrap(err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	observability.RecordBid(accepted)
	e.logger.Debug("bid evaluated",
		"auction_id", auctionID.String(),
		"offer", offer,
		"accepted", accepted,
	)
	return accepted, nil
}

// evaluate applies the proxy-bidding decision table, mutating the
// auction in place on acceptance. The displayed price only rises as far
// as needed to stay ahead of the second-highest offer by the minimum
// increment, while CurrentMaxOffer tracks the winner's true ceiling.
func evaluate(a *Auction, inc float64, bidderID ulid.ULID, offer float64) bool {
	isWinner := a.WinnerID != nil && *a.WinnerID == bidderID

	switch {
	case isWinner && offer < a.CurrentMaxOffer+inc:
		return false

	case isWinner:
		// Winner raises their own ceiling; the visible price stays put.
		a.CurrentMaxOffer = offer
		return true

	case offer < a.CurrentPrice:
		return false

	case a.WinnerID != nil && offer < a.CurrentPrice+inc:
		return false

	case a.WinnerID == nil && offer > a.CurrentMaxOffer:
		// First bid above the standing ceiling: price stays at the
		// starting price.
		a.CurrentMaxOffer = offer
		winner := bidderID
		a.WinnerID = &winner
		return true

	default:
		if offer > a.CurrentMaxOffer {
			// Challenger overtakes the standing ceiling.
			a.CurrentPrice = math.Min(a.CurrentMaxOffer+inc, offer)
			a.CurrentMaxOffer = offer
			winner := bidderID
			a.WinnerID = &winner
		} else {
			// Challenger falls short: the price climbs toward the
			// ceiling but the winner keeps the auction.
			a.CurrentPrice = math.Min(a.CurrentMaxOffer, offer+inc)
		}
		return true
	}
}
