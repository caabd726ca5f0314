package cache

import (
	"errors"
	"time"
)

// ErrNotFound is returned by Lookup for a missing or expired key.
// Get reports absence with its bool result instead.
var ErrNotFound = errors.New("cache: not found")

// DefaultStaleFraction is the share of the TTL after which an entry is stale.
const DefaultStaleFraction = 0.8

// #region options
// Recorder receives cache events, labelled by cache name.
type Recorder interface {
	CacheHit(cache string)
	CacheMiss(cache string)
	CacheEviction(cache string)
	CacheRefreshFailure(cache string)
}

// Options configures a Cache. Zero values take defaults.
type Options struct {
	Name          string           // label for logs and metrics
	TTL           time.Duration    // default entry lifetime, default 5m
	MaxSize       int              // capacity, default 1000
	StaleFraction float64          // in (0,1), default 0.8
	Now           func() time.Time // clock, default time.Now
	Recorder      Recorder         // optional
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = "default"
	}
	if o.TTL <= 0 {
		o.TTL = 5 * time.Minute
	}
	if o.MaxSize <= 0 {
		o.MaxSize = 1000
	}
	if o.StaleFraction <= 0 || o.StaleFraction >= 1 {
		o.StaleFraction = DefaultStaleFraction
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// #endregion options

// #region entry
// Entry is a cached value with its insertion time and lifetime.
type Entry[V any] struct {
	Value     V
	Timestamp time.Time
	TTL       time.Duration
	StaleTime time.Duration // always < TTL
}

// Age returns how long ago the entry was stored.
func (e Entry[V]) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

// IsExpired reports whether the entry has outlived its TTL.
func (e Entry[V]) IsExpired(now time.Time) bool {
	return e.Age(now) > e.TTL
}

// IsStale reports whether the entry is past its stale time and due a refresh.
func (e Entry[V]) IsStale(now time.Time) bool {
	return e.Age(now) > e.StaleTime
}

// #endregion entry

// #region stats
// Stats is a point-in-time view of a cache.
type Stats struct {
	Name    string  `json:"name"`
	Total   int     `json:"total"`
	Valid   int     `json:"valid"`
	Stale   int     `json:"stale"` // valid but due a refresh
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// #endregion stats
