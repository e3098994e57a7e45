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

// SessionRepository implements market.SessionRepository using
// PostgreSQL. Renewal and the expired sweep are each a single statement,
// so they serialize per row without explicit locking.
type SessionRepository struct {
	db DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *market.Session) error {
	_, err := dbOrTx(ctx, r.db).Exec(ctx, `
		INSERT INTO sessions (id, site_id, user_id, valid_until, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		session.ID.String(),
		session.SiteID.String(),
		session.UserID.String(),
		session.ValidUntil,
		session.CreatedAt,
	)
	if err != nil {
		return oops.Code("SESSION_INSERT_FAILED").
			With("user_id", session.UserID.String()).
			Wrap(mapStoreError(err))
	}
	return nil
}

// Get retrieves a session by ID.
func (r *SessionRepository) Get(ctx context.Context, id ulid.ULID) (*market.Session, error) {
	row := dbOrTx(ctx, r.db).QueryRow(ctx, `
		SELECT id, site_id, user_id, valid_until, created_at
		FROM sessions
		WHERE id = $1
	`, id.String())

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(market.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("id", id.String()).
			Wrap(mapStoreError(err))
	}
	return session, nil
}

// GetActiveByUser retrieves the user's non-expired session on a site.
func (r *SessionRepository) GetActiveByUser(ctx context.Context, siteID, userID ulid.ULID, now time.Time) (*market.Session, error) {
	row := dbOrTx(ctx, r.db).QueryRow(ctx, `
		SELECT id, site_id, user_id, valid_until, created_at
		FROM sessions
		WHERE site_id = $1 AND user_id = $2 AND valid_until >= $3
	`, siteID.String(), userID.String(), now)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("user_id", userID.String()).
			Wrap(market.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_ACTIVE_FAILED").
			With("user_id", userID.String()).
			Wrap(mapStoreError(err))
	}
	return session, nil
}

// UpdateExpiration resets a session's sliding window.
func (r *SessionRepository) UpdateExpiration(ctx context.Context, id ulid.ULID, validUntil time.Time) error {
	result, err := dbOrTx(ctx, r.db).Exec(ctx, `
		UPDATE sessions SET valid_until = $2
		WHERE id = $1
	`, id.String(), validUntil)
	if err != nil {
		return oops.Code("SESSION_RENEW_FAILED").
			With("id", id.String()).
			Wrap(mapStoreError(err))
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(market.ErrNotFound)
	}
	return nil
}

// Delete removes a session.
func (r *SessionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := dbOrTx(ctx, r.db).Exec(ctx, `
		DELETE FROM sessions WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("id", id.String()).
			Wrap(mapStoreError(err))
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(market.ErrNotFound)
	}
	return nil
}

// DeleteByUser removes all sessions of a user. No rows removed is a
// valid state.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	_, err := dbOrTx(ctx, r.db).Exec(ctx, `
		DELETE FROM sessions WHERE user_id = $1
	`, userID.String())
	if err != nil {
		return oops.Code("SESSION_DELETE_BY_USER_FAILED").
			With("user_id", userID.String()).
			Wrap(mapStoreError(err))
	}
	return nil
}

// DeleteExpiredBySite removes the site's expired sessions and returns
// the count.
func (r *SessionRepository) DeleteExpiredBySite(ctx context.Context, siteID ulid.ULID, cutoff time.Time) (int64, error) {
	result, err := dbOrTx(ctx, r.db).Exec(ctx, `
		DELETE FROM sessions WHERE site_id = $1 AND valid_until < $2
	`, siteID.String(), cutoff)
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").
			With("site_id", siteID.String()).
			Wrap(mapStoreError(err))
	}
	return result.RowsAffected(), nil
}

// ListActiveBySite returns the site's non-expired sessions ordered by
// creation.
func (r *SessionRepository) ListActiveBySite(ctx context.Context, siteID ulid.ULID, now time.Time) ([]*market.Session, error) {
	rows, err := dbOrTx(ctx, r.db).Query(ctx, `
		SELECT id, site_id, user_id, valid_until, created_at
		FROM sessions
		WHERE site_id = $1 AND valid_until >= $2
		ORDER BY created_at
	`, siteID.String(), now)
	if err != nil {
		return nil, oops.Code("SESSION_LIST_FAILED").
			With("site_id", siteID.String()).
			Wrap(mapStoreError(err))
	}
	defer rows.Close()

	var sessions []*market.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, oops.Code("SESSION_SCAN_FAILED").Wrap(err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("SESSION_ROWS_ERROR").Wrap(mapStoreError(err))
	}
	return sessions, nil
}

func scanSession(row pgx.Row) (*market.Session, error) {
	var (
		idStr      string
		siteIDStr  string
		userIDStr  string
		validUntil time.Time
		createdAt  time.Time
	)
	if err := row.Scan(&idStr, &siteIDStr, &userIDStr, &validUntil, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context
		}
		return nil, oops.With("operation", "scan session").Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("operation", "parse session id").With("id", idStr).Wrap(err)
	}
	siteID, err := ulid.Parse(siteIDStr)
	if err != nil {
		return nil, oops.With("operation", "parse site id").With("site_id", siteIDStr).Wrap(err)
	}
	userID, err := ulid.Parse(userIDStr)
	if err != nil {
		return nil, oops.With("operation", "parse user id").With("user_id", userIDStr).Wrap(err)
	}

	return &market.Session{
		ID:         id,
		SiteID:     siteID,
		UserID:     userID,
		ValidUntil: validUntil,
		CreatedAt:  createdAt,
	}, nil
}

// Compile-time interface check.
var _ market.SessionRepository = (*SessionRepository)(nil)
