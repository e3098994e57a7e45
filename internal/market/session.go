// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

package market

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session ties a user to ongoing activity on a site. Its ULID identity
// doubles as the opaque token handed to clients; ULIDs stay unique under
// concurrent logins without coordination. Expiration slides: every
// qualifying activity resets ValidUntil from the current time.
type Session struct {
	ID         ulid.ULID
	SiteID     ulid.ULID
	UserID     ulid.ULID
	ValidUntil time.Time
	CreatedAt  time.Time
}

// NewSession creates a validated Session.
func NewSession(siteID, userID ulid.ULID, validUntil time.Time) (*Session, error) {
	if siteID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_SITE").Wrapf(ErrNilArgument, "site ID cannot be zero")
	}
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Wrapf(ErrNilArgument, "user ID cannot be zero")
	}
	if validUntil.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Wrapf(ErrNilArgument, "expiry time cannot be zero")
	}

	return &Session{
		ID:         ulid.Make(),
		SiteID:     siteID,
		UserID:     userID,
		ValidUntil: validUntil,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// ExpiredAt reports whether the session is expired at the given time.
// A session is valid through its expiration instant inclusive.
func (s *Session) ExpiredAt(now time.Time) bool {
	return now.After(s.ValidUntil)
}

// SessionRepository manages session persistence.
//
// Renewal and sweeping must be serialized per session record. Both are
// single-statement writes here (an UPDATE of valid_until and a DELETE
// predicated on valid_until), so the store's row-level atomicity gives
// last-writer-wins without a renewal ever resurrecting a swept session.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// Get retrieves a session by ID.
	Get(ctx context.Context, id ulid.ULID) (*Session, error)

	// GetActiveByUser retrieves the user's non-expired session on a
	// site, if any. At most one exists at a time.
	GetActiveByUser(ctx context.Context, siteID, userID ulid.ULID, now time.Time) (*Session, error)

	// UpdateExpiration resets a session's sliding window.
	UpdateExpiration(ctx context.Context, id ulid.ULID, validUntil time.Time) error

	// Delete removes a session. A second delete surfaces ErrNotFound.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteByUser removes all sessions of a user. Removing none is not
	// an error.
	DeleteByUser(ctx context.Context, userID ulid.ULID) error

	// DeleteExpiredBySite removes the site's sessions with
	// valid_until < cutoff and returns the count removed.
	DeleteExpiredBySite(ctx context.Context, siteID ulid.ULID, cutoff time.Time) (int64, error)

	// ListActiveBySite returns the site's non-expired sessions.
	ListActiveBySite(ctx context.Context, siteID ulid.ULID, now time.Time) ([]*Session, error)
}
