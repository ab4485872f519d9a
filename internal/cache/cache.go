// Package cache implements the two-tier fresh/stale cache in front of
// the trend engine, backed by Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Version prefixes every cache key so a schema change never collides
// with entries written by a previous format.
const Version = "v4"

// Config controls TTLs for the two tiers. StaleTTL must be at least
// twice FreshTTL.
type Config struct {
	FreshTTL time.Duration
	StaleTTL time.Duration
}

// DefaultConfig returns the spec-defined defaults: 86400s fresh,
// 172800s stale.
func DefaultConfig() Config {
	return Config{
		FreshTTL: 86400 * time.Second,
		StaleTTL: 172800 * time.Second,
	}
}

// Fingerprint identifies one logical query for caching purposes.
type Fingerprint struct {
	Keyword      string
	Country      string
	WindowDays   int
	BaselineDays int
}

// Key returns the fresh-entry key for fp.
func (fp Fingerprint) Key() string {
	return fmt.Sprintf("trend:%s:%s:%s:%d:%d", Version, strings.ToLower(fp.Keyword), fp.Country, fp.WindowDays, fp.BaselineDays)
}

// StaleKey returns the stale-entry key for fp.
func (fp Fingerprint) StaleKey() string {
	return fp.Key() + ":stale"
}

// StaleEntry wraps a stale payload with the time it was written, so
// callers can annotate responses with an age.
type StaleEntry struct {
	Payload  json.RawMessage `json:"data"`
	CachedAt time.Time       `json:"cachedAt"`
}

// Cache is the Redis-backed two-tier store. All operations are
// best-effort: a failure never propagates to the caller as an error
// from Get variants (treated as a miss), and Set failures are only
// logged.
type Cache struct {
	client *redis.Client
	cfg    Config
	log    zerolog.Logger
}

// New builds a Cache around an existing Redis client.
func New(client *redis.Client, cfg Config, log zerolog.Logger) *Cache {
	if cfg.FreshTTL <= 0 {
		cfg.FreshTTL = DefaultConfig().FreshTTL
	}
	if cfg.StaleTTL <= 0 || cfg.StaleTTL < 2*cfg.FreshTTL {
		cfg.StaleTTL = DefaultConfig().StaleTTL
	}
	return &Cache{client: client, cfg: cfg, log: log.With().Str("component", "cache").Logger()}
}

// GetFresh returns the raw payload for fp, or ok=false on miss or
// error. Errors are logged, never returned.
func (c *Cache) GetFresh(ctx context.Context, fp Fingerprint) (payload json.RawMessage, ok bool) {
	raw, err := c.client.Get(ctx, fp.Key()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", fp.Key()).Msg("cache read failed, treating as miss")
		}
		return nil, false
	}
	return raw, true
}

// StaleResult is what GetStale returns on a hit.
type StaleResult struct {
	Payload    json.RawMessage
	AgeSeconds int64
	CachedAt   time.Time
}

// GetStale returns the stale entry for fp along with its age, or
// ok=false on miss or error.
func (c *Cache) GetStale(ctx context.Context, fp Fingerprint) (res StaleResult, ok bool) {
	raw, err := c.client.Get(ctx, fp.StaleKey()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", fp.StaleKey()).Msg("stale cache read failed, treating as miss")
		}
		return StaleResult{}, false
	}

	var wrapped StaleEntry
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		c.log.Warn().Err(err).Str("key", fp.StaleKey()).Msg("stale cache entry malformed, treating as miss")
		return StaleResult{}, false
	}

	age := time.Since(wrapped.CachedAt)
	if age < 0 {
		age = 0
	}
	return StaleResult{
		Payload:    wrapped.Payload,
		AgeSeconds: int64(age.Seconds()),
		CachedAt:   wrapped.CachedAt,
	}, true
}

// Set writes the fresh entry (TTL FreshTTL) and the stale entry
// wrapped with its write time (TTL StaleTTL). Failures are logged, not
// returned: a cache write must never fail the caller's request.
func (c *Cache) Set(ctx context.Context, fp Fingerprint, payload json.RawMessage) {
	if err := c.client.Set(ctx, fp.Key(), []byte(payload), c.cfg.FreshTTL).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", fp.Key()).Msg("fresh cache write failed")
	}

	wrapped, err := json.Marshal(StaleEntry{Payload: payload, CachedAt: time.Now().UTC()})
	if err != nil {
		c.log.Warn().Err(err).Msg("stale cache envelope marshal failed")
		return
	}
	if err := c.client.Set(ctx, fp.StaleKey(), wrapped, c.cfg.StaleTTL).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", fp.StaleKey()).Msg("stale cache write failed")
	}
}

// TTL returns the remaining seconds of the fresh entry, or -1 if
// absent or on error.
func (c *Cache) TTL(ctx context.Context, fp Fingerprint) int64 {
	d, err := c.client.TTL(ctx, fp.Key()).Result()
	if err != nil || d < 0 {
		return -1
	}
	return int64(d.Seconds())
}

// Delete removes the fresh entry only, per the spec's delete contract.
func (c *Cache) Delete(ctx context.Context, fp Fingerprint) {
	if err := c.client.Del(ctx, fp.Key()).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", fp.Key()).Msg("cache delete failed")
	}
}

// Ping checks Redis reachability for the health endpoint.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
