// Package blacklist implements the revocation cache that gives self-contained bearer
// tokens fast, eventually consistent revocation. Entries live in a pluggable Store
// (Redis for multi-instance deployments, in-process memory otherwise) and expire on
// their own once the tokens they cover would have expired anyway.
package blacklist

import (
	"context"
	"time"

	apperrors "github.com/allisson/tokenkeeper/internal/errors"
)

// ErrInvalidTTL is returned by stores asked to write an entry without a positive TTL.
var ErrInvalidTTL = apperrors.New("blacklist entry ttl must be positive")

// Store is the key/value backend of the blacklist. Every entry carries a TTL.
// Pattern deletion is deliberately absent: not every backend can do it atomically.
type Store interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key for ttl. A non-positive ttl returns ErrInvalidTTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Cleanup drops expired entries and returns how many were removed. Backends with
	// native expiry return zero.
	Cleanup(ctx context.Context) (int, error)

	// Close releases the backend.
	Close() error
}
