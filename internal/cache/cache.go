package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"secretheart/internal/middleware"
	"secretheart/internal/observability"

	"github.com/redis/go-redis/v9"
)

// ConfessionsListKey holds the newest-first feed.
const ConfessionsListKey = "confessions:list"

// ConfessionsListGenKey counts writes to the feed. A list fill stores its
// result only if the counter did not move while it was reading.
const ConfessionsListGenKey = "confessions:list:gen"

// DefaultListTTL is used when no TTL is configured.
const DefaultListTTL = 30 * time.Second

// Cache is a JSON cache over Redis. A nil *Cache, or one without a client,
// is a valid no-op cache.
type Cache struct {
	client *redis.Client
}

// New wraps client. client may be nil.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Enabled reports whether the cache is backed by Redis.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	s, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, b, ttl).Err()
}

// BumpAndInvalidate advances genKey and deletes keys in one transaction.
// Call it after the source has been written.
func (c *Cache) BumpAndInvalidate(ctx context.Context, genKey string, keys ...string) {
	if !c.Enabled() {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		if len(keys) > 0 {
			pipe.Del(ctx, keys...)
		}
		return nil
	})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed",
			slog.Any("keys", keys),
			slog.String("error", err.Error()),
		)
	}
}

// generation reads genKey; a missing key is generation 0.
func (c *Cache) generation(ctx context.Context, genKey string) (int64, error) {
	n, err := c.client.Get(ctx, genKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// setJSONIfGeneration stores v under key only while genKey still reads gen.
// A bump between the check and the set aborts the transaction.
func (c *Cache) setJSONIfGeneration(ctx context.Context, key, genKey string, gen int64, v any, ttl time.Duration) (bool, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return false, err
	}

	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return nil
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, ttl)
			return nil
		}); err != nil {
			return err
		}
		stored = true
		return nil
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

// Aside tries Redis first; on a miss it calls fetch, which must populate
// dest and report whether the result may be stored. Cache read and write
// failures degrade to a direct fetch.
func (c *Cache) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() (store bool, err error)) error {
	return c.AsideGuarded(ctx, key, "", dest, ttl, fetch)
}

// AsideGuarded is Aside with a write guard: the fetched value is stored only
// if genKey did not change while fetch ran, so a fill that raced a write
// cannot cache the pre-write result. An empty genKey disables the guard.
func (c *Cache) AsideGuarded(ctx context.Context, key, genKey string, dest any, ttl time.Duration, fetch func() (store bool, err error)) error {
	found, err := c.GetJSON(ctx, key, dest)
	switch {
	case err != nil:
		observability.CacheLookups.WithLabelValues("error").Inc()
		middleware.Logger.WarnContext(ctx, "cache read failed, falling through to source",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	case found:
		observability.CacheLookups.WithLabelValues("hit").Inc()
		return nil
	case c.Enabled():
		observability.CacheLookups.WithLabelValues("miss").Inc()
	}

	var (
		gen    int64
		genErr error
	)
	if genKey != "" && c.Enabled() {
		gen, genErr = c.generation(ctx, genKey)
	}

	store, err := fetch()
	if err != nil {
		return err
	}
	if !store || !c.Enabled() {
		return nil
	}

	switch {
	case genKey == "":
		err = c.SetJSON(ctx, key, dest, ttl)
	case genErr != nil:
		err = genErr
	default:
		var stored bool
		stored, err = c.setJSONIfGeneration(ctx, key, genKey, gen, dest, ttl)
		if err == nil && !stored {
			middleware.Logger.DebugContext(ctx, "list changed during fill, not caching", slog.String("key", key))
		}
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return nil
}
