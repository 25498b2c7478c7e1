// Package cache provides the string-keyed, string-valued price cache with
// per-entry absolute expiry. Backends: in-process memory, Redis, and SQLite.
package cache

import (
	"context"
	"time"
)

// Cache is the cache-aside contract used by the storefront clients.
// A miss is ("", false, nil). Errors mean the backend could not answer and
// callers are expected to carry on without the cache.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Name() string
}

// Purger is implemented by backends that must have expired entries removed
// explicitly. Redis expires keys on its own and does not implement it.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}
