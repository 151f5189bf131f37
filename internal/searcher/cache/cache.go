// Package cache memoises query results in Redis. Keys are derived from the
// normalised term set plus an index generation, so a rebuilt index never
// serves results computed against its predecessor.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/invindex/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/resilience"
)

const keyPrefix = "invindex:query:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store      Store
	ttl        time.Duration
	generation atomic.Pointer[func() string]
	metrics    *metrics.Metrics
	group      singleflight.Group
	logger     *slog.Logger
	hits       atomic.Int64
	misses     atomic.Int64
}

// New returns a cache over store. generation identifies the loaded index;
// m may be nil.
func New(store Store, ttl time.Duration, generation string, m *metrics.Metrics) *QueryCache {
	c := &QueryCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
	c.SetGeneration(generation)
	return c
}

// SetGeneration switches the cache to a new index generation. Entries of the
// previous generation are no longer read and expire on their own.
func (c *QueryCache) SetGeneration(generation string) {
	current := func() string { return generation }
	c.generation.Store(&current)
}

// TrackGeneration makes the cache read the generation from fn on every
// lookup. fn must change in the same step as the index that answers queries,
// otherwise a lookup can pair one index with the other's generation.
func (c *QueryCache) TrackGeneration(fn func() string) {
	c.generation.Store(&fn)
}

func (c *QueryCache) Get(ctx context.Context, terms []string) ([]int, bool) {
	return c.get(ctx, c.buildKey(terms), terms)
}

func (c *QueryCache) get(ctx context.Context, key string, terms []string) ([]int, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "terms", terms, "key", key)
	return ids, true
}

func (c *QueryCache) Set(ctx context.Context, terms []string, ids []int) {
	c.set(ctx, c.buildKey(terms), ids)
}

func (c *QueryCache) set(ctx context.Context, key string, ids []int) {
	data, err := json.Marshal(ids)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for terms, or runs compute once per
// key across concurrent callers and caches its result. The bool reports a
// cache hit.
//
// The key is fixed when the call starts. A result computed after the
// generation moved on is stored under the older key, which the new
// generation never reads.
func (c *QueryCache) GetOrCompute(ctx context.Context, terms []string, compute func() ([]int, error)) ([]int, bool, error) {
	key := c.buildKey(terms)
	if ids, ok := c.get(ctx, key, terms); ok {
		return ids, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		ids, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, ids)
		return ids, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]int), false, nil
}

// Invalidate drops every cached query, across all generations.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *QueryCache) buildKey(terms []string) string {
	raw := (*c.generation.Load())() + "|" + normalizeTerms(terms)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// normalizeTerms produces the same string for any two term lists the
// executor would answer identically.
func normalizeTerms(terms []string) string {
	lowered := make([]string, len(terms))
	for i, t := range terms {
		lowered[i] = strings.ToLower(t)
	}
	slices.Sort(lowered)
	return strings.Join(slices.Compact(lowered), ",")
}

type guardedStore struct {
	store   Store
	breaker *resilience.CircuitBreaker
}

// Guard routes store calls through breaker. Key-not-found replies count as
// successes.
func Guard(store Store, breaker *resilience.CircuitBreaker) Store {
	return &guardedStore{store: store, breaker: breaker}
}

func (g *guardedStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	var notFound error
	err := g.breaker.Execute(func() error {
		var err error
		data, err = g.store.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			notFound = err
			return nil
		}
		return err
	})
	if notFound != nil {
		return nil, notFound
	}
	return data, err
}

func (g *guardedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.breaker.Execute(func() error {
		return g.store.Set(ctx, key, value, ttl)
	})
}

func (g *guardedStore) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var n int64
	err := g.breaker.Execute(func() error {
		var err error
		n, err = g.store.FlushByPattern(ctx, pattern)
		return err
	})
	return n, err
}
