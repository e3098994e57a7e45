// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

package market

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// memSessionRepo is an in-memory SessionRepository for tests.
type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[ulid.ULID]*Session

	createErr error
	getErr    error
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[ulid.ULID]*Session)}
}

func (r *memSessionRepo) Create(_ context.Context, session *Session) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *memSessionRepo) Get(_ context.Context, id ulid.ULID) (*Session, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (r *memSessionRepo) GetActiveByUser(_ context.Context, siteID, userID ulid.ULID, now time.Time) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if session.SiteID == siteID && session.UserID == userID && !now.After(session.ValidUntil) {
			copied := *session
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memSessionRepo) UpdateExpiration(_ context.Context, id ulid.ULID, validUntil time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}
	session.ValidUntil = validUntil
	return nil
}

func (r *memSessionRepo) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *memSessionRepo) DeleteByUser(_ context.Context, userID ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, session := range r.sessions {
		if session.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *memSessionRepo) DeleteExpiredBySite(_ context.Context, siteID ulid.ULID, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, session := range r.sessions {
		if session.SiteID == siteID && session.ValidUntil.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *memSessionRepo) ListActiveBySite(_ context.Context, siteID ulid.ULID, now time.Time) ([]*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Session
	for _, session := range r.sessions {
		if session.SiteID == siteID && !now.After(session.ValidUntil) {
			copied := *session
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// memAuctionRepo is an in-memory AuctionRepository for tests.
type memAuctionRepo struct {
	mu       sync.Mutex
	auctions map[ulid.ULID]*Auction
}

func newMemAuctionRepo() *memAuctionRepo {
	return &memAuctionRepo{auctions: make(map[ulid.ULID]*Auction)}
}

func (r *memAuctionRepo) Create(_ context.Context, auction *Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *auction
	r.auctions[auction.ID] = &copied
	return nil
}

func (r *memAuctionRepo) Get(_ context.Context, id ulid.ULID) (*Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	auction, ok := r.auctions[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *auction
	return &copied, nil
}

func (r *memAuctionRepo) GetForUpdate(ctx context.Context, id ulid.ULID) (*Auction, error) {
	return r.Get(ctx, id)
}

func (r *memAuctionRepo) UpdateBidState(_ context.Context, auction *Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.auctions[auction.ID]
	if !ok {
		return ErrNotFound
	}
	stored.CurrentPrice = auction.CurrentPrice
	stored.CurrentMaxOffer = auction.CurrentMaxOffer
	stored.WinnerID = auction.WinnerID
	return nil
}

func (r *memAuctionRepo) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.auctions[id]; !ok {
		return ErrNotFound
	}
	delete(r.auctions, id)
	return nil
}

func (r *memAuctionRepo) ListBySite(_ context.Context, siteID ulid.ULID, onlyNotEnded bool, now time.Time) ([]*Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Auction
	for _, auction := range r.auctions {
		if auction.SiteID != siteID {
			continue
		}
		if onlyNotEnded && auction.Ended(now) {
			continue
		}
		copied := *auction
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memAuctionRepo) ListWonByUser(_ context.Context, userID ulid.ULID, now time.Time) ([]*Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Auction
	for _, auction := range r.auctions {
		if auction.Ended(now) && auction.WinnerID != nil && *auction.WinnerID == userID {
			copied := *auction
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memAuctionRepo) CountOpenByUser(_ context.Context, userID ulid.ULID, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, auction := range r.auctions {
		if auction.Ended(now) {
			continue
		}
		if auction.SellerID == userID || (auction.WinnerID != nil && *auction.WinnerID == userID) {
			n++
		}
	}
	return n, nil
}

func (r *memAuctionRepo) DeleteEndedByOwner(_ context.Context, userID ulid.ULID, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, auction := range r.auctions {
		if auction.SellerID == userID && auction.Ended(now) {
			delete(r.auctions, id)
		}
	}
	return nil
}

// memUserRepo is an in-memory UserRepository for tests.
type memUserRepo struct {
	mu    sync.Mutex
	users map[ulid.ULID]*User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[ulid.ULID]*User)}
}

func (r *memUserRepo) Create(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.SiteID == user.SiteID && existing.Username == user.Username {
			return ErrNameInUse
		}
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id ulid.ULID) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *memUserRepo) GetForUpdate(ctx context.Context, id ulid.ULID) (*User, error) {
	return r.GetByID(ctx, id)
}

func (r *memUserRepo) GetByUsername(_ context.Context, siteID ulid.ULID, username string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.SiteID == siteID && user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memUserRepo) ListBySite(_ context.Context, siteID ulid.ULID) ([]*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*User
	for _, user := range r.users {
		if user.SiteID == siteID {
			copied := *user
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memUserRepo) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// memSiteRepo is an in-memory SiteRepository for tests.
type memSiteRepo struct {
	mu    sync.Mutex
	sites map[ulid.ULID]*Site
}

func newMemSiteRepo() *memSiteRepo {
	return &memSiteRepo{sites: make(map[ulid.ULID]*Site)}
}

func (r *memSiteRepo) Create(_ context.Context, site *Site) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sites {
		if existing.Name == site.Name {
			return ErrNameInUse
		}
	}
	copied := *site
	r.sites[site.ID] = &copied
	return nil
}

func (r *memSiteRepo) GetByName(_ context.Context, name string) (*Site, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, site := range r.sites {
		if site.Name == name {
			copied := *site
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memSiteRepo) List(_ context.Context) ([]*Site, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Site, 0, len(r.sites))
	for _, site := range r.sites {
		copied := *site
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memSiteRepo) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sites[id]; !ok {
		return ErrNotFound
	}
	delete(r.sites, id)
	return nil
}

// nopTransactor runs the function directly without a store transaction.
type nopTransactor struct{}

func (nopTransactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// serialTransactor holds a mutex for the duration of each transaction,
// modeling the mutual exclusion a row lock provides in the store.
type serialTransactor struct {
	mu sync.Mutex
}

func (t *serialTransactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}

// Compile-time interface checks for the fakes.
var (
	_ SessionRepository = (*memSessionRepo)(nil)
	_ AuctionRepository = (*memAuctionRepo)(nil)
	_ UserRepository    = (*memUserRepo)(nil)
	_ SiteRepository    = (*memSiteRepo)(nil)
	_ Transactor        = nopTransactor{}
	_ Transactor        = (*serialTransactor)(nil)
)
