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
)

// SessionManager owns the sliding-expiration policy for one site's
// sessions: idempotent login, renewal on activity, validation, logout,
// and the periodic expired sweep.
type SessionManager struct {
	sessions SessionRepository
	users    UserRepository
	tx       Transactor
	logger   *slog.Logger
}

// NewSessionManager creates a SessionManager. A nil logger defaults to
// slog.Default().
func NewSessionManager(sessions SessionRepository, users UserRepository, tx Transactor, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{sessions: sessions, users: users, tx: tx, logger: logger}
}

// Login returns the user's live session, creating one only if none
// exists. Repeated logins before expiry return the existing session
// unchanged. The lookup-then-create pair runs inside a transaction
// holding the user's row lock, so two concurrent logins cannot both
// observe "no active session" and each materialize one.
func (m *SessionManager) Login(ctx context.Context, site *Site, user *User, now time.Time) (*Session, error) {
	var session *Session

	err := m.tx.InTransaction(ctx, func(ctx context.Context) error {
		if _, err := m.users.GetForUpdate(ctx, user.ID); err != nil {
			return oops.Code("SESSION_USER_LOCK_FAILED").
				With("site", site.Name).
				With("user_id", user.ID.String()).
				Wrap(err)
		}

		existing, err := m.sessions.GetActiveByUser(ctx, site.ID, user.ID, now)
		if err == nil {
			session = existing
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return oops.Code("SESSION_LOOKUP_FAILED").
				With("site", site.Name).
				With("user_id", user.ID.String()).
				Wrap(err)
		}

		fresh, err := NewSession(site.ID, user.ID, now.Add(site.SessionExpiration()))
		if err != nil {
			return err
		}
		if err := m.sessions.Create(ctx, fresh); err != nil {
			return oops.Code("SESSION_CREATE_FAILED").
				With("site", site.Name).
				With("user_id", user.ID.String()).
				Wrap(err)
		}
		session = fresh

		m.logger.Debug("session created",
			"session_id", session.ID.String(),
			"user_id", user.ID.String(),
			"valid_until", session.ValidUntil,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Renew resets the session's expiration to now plus the site's window.
// The window slides: it never shrinks an expiration into the past of a
// later renewal, and repeated activity keeps extending it.
func (m *SessionManager) Renew(ctx context.Context, site *Site, session *Session, now time.Time) error {
	validUntil := now.Add(site.SessionExpiration())
	if err := m.sessions.UpdateExpiration(ctx, session.ID, validUntil); err != nil {
		return oops.Code("SESSION_RENEW_FAILED").
			With("session_id", session.ID.String()).
			Wrap(err)
	}
	session.ValidUntil = validUntil
	return nil
}

// Get retrieves a session by its token.
func (m *SessionManager) Get(ctx context.Context, id ulid.ULID) (*Session, error) {
	session, err := m.sessions.Get(ctx, id)
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("session_id", id.String()).
			Wrap(err)
	}
	return session, nil
}

// IsValid reports whether the session still exists and is unexpired.
// A missing session is a clean false; store failures are errors.
func (m *SessionManager) IsValid(ctx context.Context, id ulid.ULID, now time.Time) (bool, error) {
	session, err := m.sessions.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("SESSION_GET_FAILED").
			With("session_id", id.String()).
			Wrap(err)
	}
	return !session.ExpiredAt(now), nil
}

// Logout removes the session immediately. Logging out an unknown or
// already-removed session surfaces ErrNotFound.
func (m *SessionManager) Logout(ctx context.Context, id ulid.ULID) error {
	if err := m.sessions.Delete(ctx, id); err != nil {
		return oops.Code("SESSION_LOGOUT_FAILED").
			With("session_id", id.String()).
			Wrap(err)
	}
	m.logger.Debug("session logged out", "session_id", id.String())
	return nil
}

// ActiveBySite returns the site's non-expired sessions.
func (m *SessionManager) ActiveBySite(ctx context.Context, siteID ulid.ULID, now time.Time) ([]*Session, error) {
	return m.sessions.ListActiveBySite(ctx, siteID, now)
}

// DeleteByUser removes all sessions of a user. Removing none is fine.
func (m *SessionManager) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	return m.sessions.DeleteByUser(ctx, userID)
}

// SweepExpired removes every session of the site whose expiration lies
// strictly before now, returning the count removed. Sessions of other
// sites are untouched.
func (m *SessionManager) SweepExpired(ctx context.Context, siteID ulid.ULID, now time.Time) (int64, error) {
	n, err := m.sessions.DeleteExpiredBySite(ctx, siteID, now)
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").
			With("site_id", siteID.String()).
			Wrap(err)
	}
	return n, nil
}
