// Package store defines the key/value boundary the registry service persists through.
//
// A backend exposes a KV view that is only valid inside RunInTx. Every write made
// through that view is applied atomically when fn returns nil and discarded when it
// returns an error, so a failed call leaves the namespace exactly as it was.
package store

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks KV

import (
	"context"
	"time"
)

// DefaultTxTimeout bounds a transaction when the caller's context has no deadline.
const DefaultTxTimeout = 5 * time.Second

// DefaultNamespace scopes keys for a single registry instance.
const DefaultNamespace = "charity"

// KV is a transaction-scoped view of one registry namespace.
type KV interface {
	// Get returns the value stored under key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Transactor opens an all-or-nothing unit of work over the namespace.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(kv KV) error) error
}

// Backend is a Transactor that can also report its own health.
type Backend interface {
	Transactor
	Ping(ctx context.Context) error
	Close() error
}

// WithTxTimeout applies DefaultTxTimeout (or timeout, when positive) to ctx
// unless ctx already carries a deadline.
func WithTxTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	if timeout <= 0 {
		timeout = DefaultTxTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
