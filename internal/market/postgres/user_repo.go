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

// UserRepository implements market.UserRepository using PostgreSQL.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user. A duplicate (site, username) pair surfaces
// market.ErrNameInUse.
func (r *UserRepository) Create(ctx context.Context, user *market.User) error {
	_, err := dbOrTx(ctx, r.db).Exec(ctx, `
		INSERT INTO users (id, site_id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		user.ID.String(),
		user.SiteID.String(),
		user.Username,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		return oops.Code("USER_INSERT_FAILED").
			With("username", user.Username).
			Wrap(mapStoreError(err))
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*market.User, error) {
	row := dbOrTx(ctx, r.db).QueryRow(ctx, `
		SELECT id, site_id, username, password_hash, created_at
		FROM users
		WHERE id = $1
	`, id.String())
	return r.one(row, id)
}

// GetForUpdate retrieves a user and locks its row for the rest of the
// surrounding transaction.
func (r *UserRepository) GetForUpdate(ctx context.Context, id ulid.ULID) (*market.User, error) {
	row := dbOrTx(ctx, r.db).QueryRow(ctx, `
		SELECT id, site_id, username, password_hash, created_at
		FROM users
		WHERE id = $1
		FOR UPDATE
	`, id.String())
	return r.one(row, id)
}

func (r *UserRepository) one(row pgx.Row, id ulid.ULID) (*market.User, error) {
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(market.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("id", id.String()).
			Wrap(mapStoreError(err))
	}
	return user, nil
}

// GetByUsername retrieves a user by username within a site.
func (r *UserRepository) GetByUsername(ctx context.Context, siteID ulid.ULID, username string) (*market.User, error) {
	row := dbOrTx(ctx, r.db).QueryRow(ctx, `
		SELECT id, site_id, username, password_hash, created_at
		FROM users
		WHERE site_id = $1 AND username = $2
	`, siteID.String(), username)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("username", username).
			Wrap(market.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("username", username).
			Wrap(mapStoreError(err))
	}
	return user, nil
}

// ListBySite returns all users of a site ordered by username.
func (r *UserRepository) ListBySite(ctx context.Context, siteID ulid.ULID) ([]*market.User, error) {
	rows, err := dbOrTx(ctx, r.db).Query(ctx, `
		SELECT id, site_id, username, password_hash, created_at
		FROM users
		WHERE site_id = $1
		ORDER BY username
	`, siteID.String())
	if err != nil {
		return nil, oops.Code("USER_LIST_FAILED").
			With("site_id", siteID.String()).
			Wrap(mapStoreError(err))
	}
	defer rows.Close()

	var users []*market.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, oops.Code("USER_SCAN_FAILED").Wrap(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_ROWS_ERROR").Wrap(mapStoreError(err))
	}
	return users, nil
}

// Delete removes a user record.
func (r *UserRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := dbOrTx(ctx, r.db).Exec(ctx, `
		DELETE FROM users WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("USER_DELETE_FAILED").
			With("id", id.String()).
			Wrap(mapStoreError(err))
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(market.ErrNotFound)
	}
	return nil
}

func scanUser(row pgx.Row) (*market.User, error) {
	var (
		idStr     string
		siteIDStr string
		username  string
		hash      string
		createdAt time.Time
	)
	if err := row.Scan(&idStr, &siteIDStr, &username, &hash, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context
		}
		return nil, oops.With("operation", "scan user").Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("operation", "parse user id").With("id", idStr).Wrap(err)
	}
	siteID, err := ulid.Parse(siteIDStr)
	if err != nil {
		return nil, oops.With("operation", "parse site id").With("site_id", siteIDStr).Wrap(err)
	}

	return &market.User{
		ID:           id,
		SiteID:       siteID,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    createdAt,
	}, nil
}

// Compile-time interface check.
var _ market.UserRepository = (*UserRepository)(nil)
