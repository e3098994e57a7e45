// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

package market

import "context"

// Transactor runs a function inside a single store transaction. The
// transaction is carried in the context so transaction-aware repository
// methods participate in it.
type Transactor interface {
	// InTransaction begins a transaction and calls fn. A nil return
	// commits; any error rolls back.
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
