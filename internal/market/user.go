// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

package market

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// User is a registered account on one site. Usernames are unique within
// their site, not across sites.
type User struct {
	ID           ulid.ULID
	SiteID       ulid.ULID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// NewUser creates a validated User with an already-hashed password.
func NewUser(siteID ulid.ULID, username, passwordHash string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_EMPTY_HASH").Wrapf(ErrNilArgument, "password hash cannot be empty")
	}

	return &User{
		ID:           ulid.Make(),
		SiteID:       siteID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// ValidateUsername checks the username length bounds.
func ValidateUsername(username string) error {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return oops.Code("USER_INVALID_NAME").
			With("username", username).
			Wrapf(ErrInvalidArgument, "username must be %d to %d characters", MinUsernameLength, MaxUsernameLength)
	}
	return nil
}

// ValidatePassword checks the plaintext password length bound.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code("USER_INVALID_PASSWORD").
			Wrapf(ErrInvalidArgument, "password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. A duplicate (site, username) pair
	// surfaces ErrNameInUse.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetForUpdate retrieves a user by ID, locking its row for the
	// remainder of the surrounding transaction. Login holds this lock
	// across its lookup-then-create pair so concurrent logins for the
	// same user serialize instead of each materializing a session.
	GetForUpdate(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByUsername retrieves a user by username within a site.
	GetByUsername(ctx context.Context, siteID ulid.ULID, username string) (*User, error)

	// ListBySite returns all users of a site.
	ListBySite(ctx context.Context, siteID ulid.ULID) ([]*User, error)

	// Delete removes a user record. The caller enforces the open-auction
	// guard and cascades first.
	Delete(ctx context.Context, id ulid.ULID) error
}
