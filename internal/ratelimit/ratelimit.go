// Package ratelimit provides a pluggable rate limiting interface with
// an in-memory token bucket implementation (MemoryLimiter). Single
// instance deployments need nothing more; a Redis-backed Limiter can
// be substituted for cross-instance coordination.
package ratelimit

import "context"

// Limiter decides whether a request identified by key should be allowed.
// Implementations must be safe for concurrent use.
type Limiter interface {
	// Allow returns true if the request should proceed. The key is
	// opaque; callers construct it (e.g. "user:42" or "ip:10.0.0.1").
	// An error signals a limiter malfunction; callers should treat
	// errors as fail-open rather than blocking traffic.
	Allow(ctx context.Context, key string) (bool, error)

	// Close releases resources (cleanup goroutines, connections).
	Close() error
}

// NoopLimiter permits every request. Used when rate limiting is disabled.
type NoopLimiter struct{}

// Allow always returns true.
func (NoopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

// Close is a no-op.
func (NoopLimiter) Close() error { return nil }
