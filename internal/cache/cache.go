// Package cache provides short-TTL Redis caching for personality
// profiles and recommendation results. Serving stays correct without
// Redis: a nil *Cache is a valid no-op instance, and cache failures
// surface as misses to the caller.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
)

// ErrMiss is returned when a key is absent or the cache is disabled.
var ErrMiss = errors.New("cache: miss")

// Cache wraps a Redis client with the service's key layout and TTLs.
type Cache struct {
	client     *redis.Client
	logger     *slog.Logger
	profileTTL time.Duration
	recsTTL    time.Duration
}

// New connects to Redis using a redis:// URL.
func New(redisURL string, profileTTL, recsTTL time.Duration, logger *slog.Logger) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis URL: %w", err)
	}
	return &Cache{
		client:     redis.NewClient(opts),
		logger:     logger,
		profileTTL: profileTTL,
		recsTTL:    recsTTL,
	}, nil
}

// Ping verifies the Redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache: ping: %w", err)
	}
	return nil
}

// Close releases the client's connections.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func profileKey(userID int64) string {
	return fmt.Sprintf("profile:%d", userID)
}

func recommendationsKey(userID int64, kind string) string {
	return fmt.Sprintf("recommendations:%d:%s", userID, kind)
}

// Profile returns the cached personality profile, or ErrMiss.
func (c *Cache) Profile(ctx context.Context, userID int64) (*model.PersonalityProfile, error) {
	var profile model.PersonalityProfile
	if err := c.get(ctx, profileKey(userID), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// SetProfile caches a personality profile for the profile TTL.
func (c *Cache) SetProfile(ctx context.Context, userID int64, profile *model.PersonalityProfile) error {
	if c == nil {
		return nil
	}
	return c.set(ctx, profileKey(userID), profile, c.profileTTL)
}

// Recommendations returns a cached recommendation result for the given
// kind ("default", "trending", ...), or ErrMiss.
func (c *Cache) Recommendations(ctx context.Context, userID int64, kind string) (*model.RecommendationResult, error) {
	var result model.RecommendationResult
	if err := c.get(ctx, recommendationsKey(userID, kind), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetRecommendations caches a recommendation result for the
// recommendation TTL.
func (c *Cache) SetRecommendations(ctx context.Context, userID int64, kind string, result *model.RecommendationResult) error {
	if c == nil {
		return nil
	}
	return c.set(ctx, recommendationsKey(userID, kind), result, c.recsTTL)
}

// InvalidateUser drops the user's profile and every cached
// recommendation kind. Called when fresh interactions arrive so stale
// results don't outlive their inputs.
func (c *Cache) InvalidateUser(ctx context.Context, userID int64) error {
	if c == nil {
		return nil
	}

	keys := []string{profileKey(userID)}
	pattern := fmt.Sprintf("recommendations:%d:*", userID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache: scan %q: %w", pattern, err)
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache: invalidate user %d: %w", userID, err)
	}
	return nil
}

func (c *Cache) get(ctx context.Context, key string, dst any) error {
	if c == nil {
		return ErrMiss
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		// Treat an unreachable cache as a miss; the caller recomputes.
		c.logger.Warn("cache get failed", "key", key, "error", err)
		return ErrMiss
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("cache entry corrupt, dropping", "key", key, "error", err)
		_ = c.client.Del(ctx, key).Err()
		return ErrMiss
	}
	return nil
}

func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal %q: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %q: %w", key, err)
	}
	return nil
}
