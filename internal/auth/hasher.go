// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

// Package auth provides credential hashing for Gavelhouse.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"

	"github.com/samber/oops"
	"golang.org/x/crypto/pbkdf2"

	"crypto/sha1" //nolint:gosec // G505: PBKDF2-HMAC-SHA1 per stored-record format, not bare SHA1.
)

// PBKDF2 parameters. The stored record is base64(salt || derivedKey),
// so both lengths are fixed by the record layout.
const (
	pbkdf2Iterations = 10_000
	pbkdf2SaltLen    = 16
	pbkdf2KeyLen     = 20
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash derives a salted key from the password and returns it as an
	// opaque encoded record.
	Hash(password string) (string, error)

	// Verify checks the password against a stored record.
	// It fails closed: malformed records verify as false, without error.
	Verify(password, stored string) bool
}

// PBKDF2Hasher implements PasswordHasher using PBKDF2-HMAC-SHA1.
type PBKDF2Hasher struct{}

// NewPBKDF2Hasher creates a new PBKDF2Hasher.
func NewPBKDF2Hasher() *PBKDF2Hasher {
	return &PBKDF2Hasher{}
}

// Hash derives a key from the password under a fresh random salt and
// returns base64(salt || derivedKey).
func (h *PBKDF2Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, pbkdf2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLen, sha1.New)

	record := make([]byte, 0, pbkdf2SaltLen+pbkdf2KeyLen)
	record = append(record, salt...)
	record = append(record, key...)

	return base64.StdEncoding.EncodeToString(record), nil
}

// Verify re-derives the key with the record's salt and compares in
// constant time.
func (h *PBKDF2Hasher) Verify(password, stored string) bool {
	record, err := base64.StdEncoding.DecodeString(stored)
	if err != nil || len(record) != pbkdf2SaltLen+pbkdf2KeyLen {
		return false
	}

	salt := record[:pbkdf2SaltLen]
	expected := record[pbkdf2SaltLen:]

	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLen, sha1.New)

	return subtle.ConstantTimeCompare(key, expected) == 1
}
