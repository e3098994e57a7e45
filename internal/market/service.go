// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

package market

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gavelhouse/gavelhouse/internal/auth"
	"github.com/gavelhouse/gavelhouse/internal/clock"
)

// ServiceConfig holds the dependencies for a SiteService.
type ServiceConfig struct {
	Site        *Site
	Clock       clock.AlarmClock
	Hasher      auth.PasswordHasher
	Sites       SiteRepository
	Users       UserRepository
	Sessions    SessionRepository
	Auctions    AuctionRepository
	Transactor  Transactor
	SweepPeriod time.Duration
	Logger      *slog.Logger
}

// SiteService is the aggregate root for one loaded site. It coordinates
// the credential hasher, session manager, and bidding engine against the
// durable store, and drives the site's periodic session sweep.
type SiteService struct {
	site     *Site
	clock    clock.AlarmClock
	hasher   auth.PasswordHasher
	sites    SiteRepository
	users    UserRepository
	auctions AuctionRepository
	sessions *SessionManager
	bids     *BidEngine
	tx       Transactor
	sweeper  *Sweeper
	logger   *slog.Logger
}

// NewSiteService creates a SiteService for an already-loaded site. The
// sweeper is created but not started; call StartSweeper.
func NewSiteService(cfg ServiceConfig) *SiteService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("site", cfg.Site.Name)

	sessions := NewSessionManager(cfg.Sessions, cfg.Users, cfg.Transactor, logger)
	return &SiteService{
		site:     cfg.Site,
		clock:    cfg.Clock,
		hasher:   cfg.Hasher,
		sites:    cfg.Sites,
		users:    cfg.Users,
		auctions: cfg.Auctions,
		sessions: sessions,
		bids:     NewBidEngine(cfg.Auctions, sessions, cfg.Transactor, logger),
		tx:       cfg.Transactor,
		sweeper:  NewSweeper(cfg.Site.ID, sessions, cfg.Clock, cfg.SweepPeriod, logger),
		logger:   logger,
	}
}

// Site returns the site this service operates on.
func (s *SiteService) Site() *Site {
	return s.site
}

// Now returns the current time in the site's timezone.
func (s *SiteService) Now() time.Time {
	return s.clock.Now()
}

// StartSweeper arms the periodic expired-session sweep.
func (s *SiteService) StartSweeper() {
	s.sweeper.Start()
}

// Close stops the periodic sweep.
func (s *SiteService) Close() {
	s.sweeper.Stop()
}

// CreateUser registers a new user after validating name and password
// bounds. A taken username surfaces ErrNameInUse.
func (s *SiteService) CreateUser(ctx context.Context, username, password string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return oops.Code("USER_HASH_FAILED").Wrap(err)
	}
	user, err := NewUser(s.site.ID, username, hash)
	if err != nil {
		return err
	}

	if err := s.users.Create(ctx, user); err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("username", username).
			Wrap(err)
	}

	s.logger.Info("user created", "username", username)
	return nil
}

// Login authenticates a user and returns their session. An unknown
// username and a wrong password both return (nil, nil) so callers cannot
// distinguish which failed; malformed credentials are rejected before
// any lookup.
func (s *SiteService) Login(ctx context.Context, username, password string) (*Session, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, s.site.ID, username)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("LOGIN_LOOKUP_FAILED").
			With("username", username).
			Wrap(err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, nil
	}

	return s.sessions.Login(ctx, s.site, user, s.Now())
}

// Logout removes the session. A second logout surfaces ErrNotFound.
func (s *SiteService) Logout(ctx context.Context, sessionID ulid.ULID) error {
	return s.sessions.Logout(ctx, sessionID)
}

// Sessions returns the site's non-expired sessions.
func (s *SiteService) Sessions(ctx context.Context) ([]*Session, error) {
	return s.sessions.ActiveBySite(ctx, s.site.ID, s.Now())
}

// Users returns all users registered on the site.
func (s *SiteService) Users(ctx context.Context) ([]*User, error) {
	return s.users.ListBySite(ctx, s.site.ID)
}

// Auctions returns the site's auctions, optionally only those not yet
// ended.
func (s *SiteService) Auctions(ctx context.Context, onlyNotEnded bool) ([]*Auction, error) {
	return s.auctions.ListBySite(ctx, s.site.ID, onlyNotEnded, s.Now())
}

// WonAuctions returns the ended auctions the user has won.
func (s *SiteService) WonAuctions(ctx context.Context, userID ulid.ULID) ([]*Auction, error) {
	return s.auctions.ListWonByUser(ctx, userID, s.Now())
}

// CreateAuction registers a new auction under a valid session and renews
// that session. An expired or unknown session surfaces ErrNotFound; an
// end time not in the future surfaces ErrTimeMachine.
func (s *SiteService) CreateAuction(ctx context.Context, sessionID ulid.ULID, description string, endsOn time.Time, startingPrice float64) (*Auction, error) {
	now := s.Now()

	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUCTION_SESSION_GONE").
			With("session_id", sessionID.String()).
			Wrapf(ErrNotFound, "session does not exist")
	}
	if err != nil {
		return nil, err
	}
	if session.ExpiredAt(now) {
		return nil, oops.Code("AUCTION_SESSION_EXPIRED").
			With("session_id", sessionID.String()).
			Wrapf(ErrNotFound, "session has expired")
	}

	auction, err := NewAuction(s.site.ID, session.UserID, description, endsOn, startingPrice, now)
	if err != nil {
		return nil, err
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.auctions.Create(ctx, auction); err != nil {
			return oops.Code("AUCTION_CREATE_FAILED").Wrap(err)
		}
		// Creating an auction counts as activity.
		return s.sessions.Renew(ctx, s.site, session, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("auction created",
		"auction_id", auction.ID.String(),
		"seller_id", auction.SellerID.String(),
		"ends_on", auction.EndsOn,
	)
	return auction, nil
}

// PlaceBid evaluates an offer on an auction. See BidEngine.PlaceBid.
func (s *SiteService) PlaceBid(ctx context.Context, auctionID ulid.ULID, session *Session, offer float64) (bool, error) {
	return s.bids.PlaceBid(ctx, s.site, auctionID, session, offer, s.Now())
}

// CurrentWinner returns the auction's current winner, or nil before any
// bid. A deleted auction surfaces ErrNotFound.
func (s *SiteService) CurrentWinner(ctx context.Context, auctionID ulid.ULID) (*User, error) {
	auction, err := s.auctions.Get(ctx, auctionID)
	if err != nil {
		return nil, oops.Code("AUCTION_GET_FAILED").
			With("auction_id", auctionID.String()).
			Wrap(err)
	}
	if auction.WinnerID == nil {
		return nil, nil
	}
	winner, err := s.users.GetByID(ctx, *auction.WinnerID)
	if err != nil {
		return nil, oops.Code("AUCTION_WINNER_LOAD_FAILED").
			With("auction_id", auctionID.String()).
			Wrap(err)
	}
	return winner, nil
}

// CurrentPrice returns the auction's displayed price. A deleted auction
// surfaces ErrNotFound.
func (s *SiteService) CurrentPrice(ctx context.Context, auctionID ulid.ULID) (float64, error) {
	auction, err := s.auctions.Get(ctx, auctionID)
	if err != nil {
		return 0, oops.Code("AUCTION_GET_FAILED").
			With("auction_id", auctionID.String()).
			Wrap(err)
	}
	return auction.CurrentPrice, nil
}

// DeleteAuction removes an auction. Deleting twice surfaces ErrNotFound
// on the second call.
func (s *SiteService) DeleteAuction(ctx context.Context, auctionID ulid.ULID) error {
	if err := s.auctions.Delete(ctx, auctionID); err != nil {
		return oops.Code("AUCTION_DELETE_FAILED").
			With("auction_id", auctionID.String()).
			Wrap(err)
	}
	s.logger.Info("auction deleted", "auction_id", auctionID.String())
	return nil
}

// DeleteUser removes a user, their sessions, and their ended auctions.
// It is blocked with ErrNotFound while the user owns or is winning any
// non-ended auction.
func (s *SiteService) DeleteUser(ctx context.Context, userID ulid.ULID) error {
	now := s.Now()

	return s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.users.GetByID(ctx, userID); err != nil {
			return oops.Code("USER_DELETE_LOOKUP_FAILED").
				With("user_id", userID.String()).
				Wrap(err)
		}

		open, err := s.auctions.CountOpenByUser(ctx, userID, now)
		if err != nil {
			return oops.Code("USER_OPEN_AUCTION_CHECK_FAILED").
				With("user_id", userID.String()).
				Wrap(err)
		}
		if open > 0 {
			return oops.Code("USER_HAS_OPEN_AUCTIONS").
				With("user_id", userID.String()).
				With("open_auctions", open).
				Wrapf(ErrNotFound, "user owns or is winning open auctions")
		}

		if err := s.auctions.DeleteEndedByOwner(ctx, userID, now); err != nil {
			return oops.Code("USER_AUCTION_CASCADE_FAILED").
				With("user_id", userID.String()).
				Wrap(err)
		}
		if err := s.sessions.DeleteByUser(ctx, userID); err != nil {
			return oops.Code("USER_SESSION_CASCADE_FAILED").
				With("user_id", userID.String()).
				Wrap(err)
		}
		if err := s.users.Delete(ctx, userID); err != nil {
			return oops.Code("USER_DELETE_FAILED").
				With("user_id", userID.String()).
				Wrap(err)
		}

		s.logger.Info("user deleted", "user_id", userID.String())
		return nil
	})
}

// Delete removes the site: every user first, with each deletion
// enforcing the open-auction guard and cascading that user's sessions
// and ended auctions, then the site record itself. The sweep stops once
// the site row is gone.
func (s *SiteService) Delete(ctx context.Context) error {
	users, err := s.users.ListBySite(ctx, s.site.ID)
	if err != nil {
		return oops.Code("SITE_DELETE_LIST_FAILED").Wrap(err)
	}
	for _, user := range users {
		if err := s.DeleteUser(ctx, user.ID); err != nil {
			return err
		}
	}

	if err := s.sites.Delete(ctx, s.site.ID); err != nil {
		return oops.Code("SITE_DELETE_FAILED").Wrap(err)
	}

	s.sweeper.Stop()
	s.logger.Info("site deleted")
	return nil
}
