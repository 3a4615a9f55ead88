// Package cache is a read-through, cache-aside layer over redis.
//
// Besides plain TTL entries it maintains tracking sets: redis SETs, scoped by
// an invalidation dimension (gym, trainer, class, member), that record every
// list/query key computed under that scope. A writer that cannot rebuild the
// exact keys of the lists it affects invalidates the tracking sets instead.
//
// The cache is an accelerator only. Every redis failure is logged and treated
// as a miss; a nil *Cache runs every read straight against the source.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"gymflow/internal/logger"
	"gymflow/internal/metrics"
)

type Cache struct {
	rdb         redis.Cmdable
	trackingTTL time.Duration
	group       singleflight.Group
}

// New wraps a redis client. trackingTTL bounds the lifetime of tracking sets
// and is stretched per call so it always outlives the entries it indexes.
func New(rdb redis.Cmdable, trackingTTL time.Duration) *Cache {
	return &Cache{rdb: rdb, trackingTTL: trackingTTL}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Invalidation names what a write makes stale: keys it can address directly
// and tracking sets whose members must all go.
type Invalidation struct {
	Keys         []string
	TrackingSets []string
}

func (i Invalidation) Merge(o Invalidation) Invalidation {
	return Invalidation{
		Keys:         append(append([]string{}, i.Keys...), o.Keys...),
		TrackingSets: append(append([]string{}, i.TrackingSets...), o.TrackingSets...),
	}
}

// flightTimeout bounds a shared fetch, which no longer follows any single
// caller's context.
const flightTimeout = 30 * time.Second

// GetOrSet returns the cached value for key or computes it with fetch, stores
// it with ttl and records key in every tracking set listed. Concurrent misses
// on one key share a single fetch.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(ctx context.Context) (T, error), tracking ...string) (T, error) {
	return GetOrSetScoped(ctx, c, "", key, ttl, fetch, tracking...)
}

// GetOrSetScoped is GetOrSet for keys shared across scopes, such as detail
// keys that are not gym-scoped while their fetch is. Only misses of the same
// scope share a fetch. The shared fetch runs detached from the callers'
// cancellation and each caller stops waiting when its own ctx is done.
func GetOrSetScoped[T any](ctx context.Context, c *Cache, scope, key string, ttl time.Duration, fetch func(ctx context.Context) (T, error), tracking ...string) (T, error) {
	if !c.Enabled() {
		return fetch(ctx)
	}

	var zero T
	var cached T
	if c.get(ctx, key, &cached) {
		metrics.RecordCacheHit()
		return cached, nil
	}
	metrics.RecordCacheMiss()

	flight := key
	if scope != "" {
		flight = scope + "|" + key
	}
	ch := c.group.DoChan(flight, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()

		v, err := fetch(fctx)
		if err != nil {
			return v, err
		}
		c.set(fctx, key, v, ttl, tracking)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (c *Cache) get(ctx context.Context, key string, dst interface{}) bool {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			metrics.RecordCacheError()
			logger.Error("cache get failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		metrics.RecordCacheError()
		logger.Warn("cache entry could not be decoded", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, value interface{}, ttl time.Duration, tracking []string) {
	data, err := json.Marshal(value)
	if err != nil {
		metrics.RecordCacheError()
		logger.Error("cache value could not be encoded", "key", key, "error", err)
		return
	}

	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		metrics.RecordCacheError()
		logger.Error("cache set failed", "key", key, "error", err)
		return
	}

	c.track(ctx, key, ttl, tracking)
}

func (c *Cache) track(ctx context.Context, key string, entryTTL time.Duration, sets []string) {
	setTTL := c.trackingTTL
	if setTTL <= entryTTL {
		setTTL = 2 * entryTTL
	}
	for _, set := range sets {
		if err := c.rdb.SAdd(ctx, set, key).Err(); err != nil {
			metrics.RecordCacheError()
			logger.Error("cache tracking add failed", "set", set, "key", key, "error", err)
			continue
		}
		if err := c.rdb.Expire(ctx, set, setTTL).Err(); err != nil {
			metrics.RecordCacheError()
			logger.Error("cache tracking expire failed", "set", set, "error", err)
		}
	}
}

// Delete drops directly addressable keys. Failures are logged only.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		metrics.RecordCacheError()
		logger.Error("cache delete failed", "keys", keys, "error", err)
		return
	}
	metrics.RecordInvalidatedKeys(int(n))
}

// Invalidate deletes the direct keys, then for each tracking set deletes every
// member key and removes those members from the set. Redis drops a set once
// it is empty; a key tracked concurrently with the sweep stays tracked for
// the next write.
func (c *Cache) Invalidate(ctx context.Context, inv Invalidation) {
	if !c.Enabled() {
		return
	}

	c.Delete(ctx, inv.Keys...)

	for _, set := range dedupe(inv.TrackingSets) {
		members, err := c.rdb.SMembers(ctx, set).Result()
		if err != nil {
			metrics.RecordCacheError()
			logger.Error("cache tracking read failed", "set", set, "error", err)
			continue
		}
		if len(members) == 0 {
			continue
		}

		c.Delete(ctx, members...)
		logger.Debug("cache tracking set swept", "set", set, "keys", len(members))

		args := make([]interface{}, len(members))
		for i, m := range members {
			args[i] = m
		}
		if err := c.rdb.SRem(ctx, set, args...).Err(); err != nil {
			metrics.RecordCacheError()
			logger.Error("cache tracking cleanup failed", "set", set, "error", err)
		}
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
