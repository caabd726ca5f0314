package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// #region cache
// Cache is a size-bounded TTL cache with stale-while-revalidate reads.
// All methods are safe for concurrent use.
type Cache[K comparable, V any] struct {
	opts Options

	mu         sync.Mutex
	entries    map[K]*Entry[V]
	refreshing map[K]bool

	group singleflight.Group
	bg    sync.WaitGroup

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache.
func New[K comparable, V any](opts Options) *Cache[K, V] {
	return &Cache[K, V]{
		opts:       opts.withDefaults(),
		entries:    make(map[K]*Entry[V]),
		refreshing: make(map[K]bool),
	}
}

// Name returns the cache label.
func (c *Cache[K, V]) Name() string {
	return c.opts.Name
}

// Get returns the value for key if present and not expired.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.Now()
	e, ok := c.entries[key]
	if ok && !e.IsExpired(now) {
		c.hit()
		return e.Value, true
	}
	if ok {
		delete(c.entries, key)
	}
	c.miss()
	var zero V
	return zero, false
}

// Lookup is Get with ErrNotFound for a missing or expired key.
func (c *Cache[K, V]) Lookup(key K) (V, error) {
	v, ok := c.Get(key)
	if !ok {
		return v, fmt.Errorf("%s %v: %w", c.opts.Name, key, ErrNotFound)
	}
	return v, nil
}

// Set stores value under key with the default TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, 0)
}

// SetWithTTL stores value under key. A non-positive ttl means the default.
// When the cache is full, the entry with the oldest insertion time is evicted first.
func (c *Cache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.opts.TTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.opts.MaxSize {
		c.evictOldest()
	}
	c.entries[key] = &Entry[V]{
		Value:     value,
		Timestamp: c.opts.Now(),
		TTL:       ttl,
		StaleTime: time.Duration(float64(ttl) * c.opts.StaleFraction),
	}
}

// evictOldest removes the entry with the oldest timestamp. Caller holds mu.
func (c *Cache[K, V]) evictOldest() {
	var (
		oldestKey K
		oldest    time.Time
		found     bool
	)
	for k, e := range c.entries {
		if !found || e.Timestamp.Before(oldest) {
			oldestKey, oldest, found = k, e.Timestamp, true
		}
	}
	if !found {
		return
	}
	delete(c.entries, oldestKey)
	if c.opts.Recorder != nil {
		c.opts.Recorder.CacheEviction(c.opts.Name)
	}
}

// #endregion cache

// #region get-or-fetch
// Fetcher produces the value for a key on a miss or refresh.
type Fetcher[V any] func(ctx context.Context) (V, error)

// GetOrFetch returns the cached value for key, calling fetch on a miss.
//
// A fresh hit returns immediately. A stale hit also returns immediately and
// starts one background refresh whose error is logged and dropped. A miss
// calls fetch synchronously, shared across concurrent callers of the same
// key, stores the value on success and returns the error otherwise.
func (c *Cache[K, V]) GetOrFetch(ctx context.Context, key K, fetch Fetcher[V]) (V, error) {
	c.mu.Lock()
	now := c.opts.Now()
	if e, ok := c.entries[key]; ok && !e.IsExpired(now) {
		c.hit()
		if e.IsStale(now) && !c.refreshing[key] {
			c.refreshing[key] = true
			c.bg.Add(1)
			go c.refresh(context.WithoutCancel(ctx), key, fetch)
		}
		v := e.Value
		c.mu.Unlock()
		return v, nil
	}
	c.miss()
	c.mu.Unlock()

	res, err, _ := c.group.Do(flightKey(key), func() (any, error) {
		// a flight that finished between our miss and Do has already stored it
		if v, ok := c.peek(key); ok {
			return v, nil
		}
		v, err := fetch(ctx)
		if err != nil {
			return v, err
		}
		c.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, fmt.Errorf("fetch %v: %w", key, err)
	}
	v, _ := res.(V)
	return v, nil
}

// peek returns a fresh value without touching the counters.
func (c *Cache[K, V]) peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && !e.IsExpired(c.opts.Now()) {
		return e.Value, true
	}
	var zero V
	return zero, false
}

func (c *Cache[K, V]) refresh(ctx context.Context, key K, fetch Fetcher[V]) {
	defer c.bg.Done()
	defer func() {
		c.mu.Lock()
		delete(c.refreshing, key)
		c.mu.Unlock()
	}()

	v, err := fetch(ctx)
	if err != nil {
		log.Warn().Str("component", "cache").Str("cache", c.opts.Name).Err(err).
			Msg("background refresh failed, keeping stale value")
		if c.opts.Recorder != nil {
			c.opts.Recorder.CacheRefreshFailure(c.opts.Name)
		}
		return
	}
	c.Set(key, v)
}

// Wait blocks until in-flight background refreshes finish.
func (c *Cache[K, V]) Wait() {
	c.bg.Wait()
}

func flightKey[K comparable](key K) string {
	if s, ok := any(key).(string); ok {
		return s
	}
	return fmt.Sprintf("%T:%#v", key, key)
}

// #endregion get-or-fetch

// #region maintenance
// Delete removes key.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes every entry and resets hit/miss counters.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[K]*Entry[V])
	c.mu.Unlock()
	c.hits.Store(0)
	c.misses.Store(0)
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the stored keys in no particular order.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]K, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

// Entry returns a copy of the stored entry, expired or not. It does not count as a hit.
func (c *Cache[K, V]) Entry(key K) (Entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Entry[V]{}, false
	}
	return *e, true
}

// Stats counts entries by freshness and reports the hit rate.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	now := c.opts.Now()
	s := Stats{Name: c.opts.Name, Total: len(c.entries)}
	for _, e := range c.entries {
		if e.IsExpired(now) {
			continue
		}
		s.Valid++
		if e.IsStale(now) {
			s.Stale++
		}
	}
	c.mu.Unlock()

	s.Hits = c.hits.Load()
	s.Misses = c.misses.Load()
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

func (c *Cache[K, V]) hit() {
	c.hits.Add(1)
	if c.opts.Recorder != nil {
		c.opts.Recorder.CacheHit(c.opts.Name)
	}
}

func (c *Cache[K, V]) miss() {
	c.misses.Add(1)
	if c.opts.Recorder != nil {
		c.opts.Recorder.CacheMiss(c.opts.Name)
	}
}

// #endregion maintenance
