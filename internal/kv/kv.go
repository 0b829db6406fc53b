// Package kv provides a generic key-value store abstraction with optional
// per-record TTL and prefix listing. Keys are slash-separated logical paths
// (e.g., "user/<userKey>/settings"). Values are opaque bytes; encryption is
// layered on top by the envelope store.
package kv

import (
	"context"
	"time"
)

// Clock supplies the current time for TTL expiry math. It is injectable so
// tests can advance time deterministically.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// RealClock returns a Clock backed by the system time in UTC.
func RealClock() Clock { return realClock{} }

// writeOptions holds per-write options.
type writeOptions struct {
	ttl time.Duration
}

// Option configures a single Set call.
type Option func(*writeOptions)

// WithTTL expires the record after d, independent of its encryption. Used for
// guest users and sessions whose data must vanish on its own.
func WithTTL(d time.Duration) Option {
	return func(o *writeOptions) {
		o.ttl = d
	}
}

// Store is the persistence collaborator for all encrypted records.
type Store interface {
	// Get returns the record value and whether it exists. Expired records read
	// as absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set writes the record value, replacing any previous value.
	Set(ctx context.Context, key string, value []byte, opts ...Option) error

	// Replace rewrites the record value in place, keeping the expiry the
	// record already carries. A missing record is written without expiry.
	Replace(ctx context.Context, key string, value []byte) error

	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns all live record keys with the given prefix, in lexical order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// DeletePrefix removes every record with the given prefix and returns the
	// number of records deleted.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// Close releases the underlying storage.
	Close() error
}
