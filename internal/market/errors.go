// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

package market

import "errors"

// Sentinel errors forming the marketplace fault taxonomy. Callers match
// against these with errors.Is; the wrapping oops codes carry the
// operation-specific context.
var (
	// ErrNilArgument indicates a required reference argument was absent.
	ErrNilArgument = errors.New("required argument is nil")

	// ErrInvalidArgument indicates an argument violating a domain
	// constraint, or a composite validity failure such as an expired or
	// foreign session presented to a bid.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutOfRange indicates a numeric argument outside its bounds.
	ErrOutOfRange = errors.New("argument out of range")

	// ErrNotFound indicates an operation targeting a deleted or
	// never-existing aggregate, including double deletion.
	ErrNotFound = errors.New("not found")

	// ErrNameInUse indicates a uniqueness violation on a site or
	// username.
	ErrNameInUse = errors.New("name already in use")

	// ErrTimeMachine indicates an auction end time that does not lie in
	// the future at creation.
	ErrTimeMachine = errors.New("end time is not in the future")

	// ErrUnavailable indicates a durable-store connectivity failure.
	// It is surfaced immediately and never retried by the core.
	ErrUnavailable = errors.New("store unavailable")
)
