package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type countingRecorder struct {
	hits, misses, evictions, refreshFailures atomic.Int64
}

func (r *countingRecorder) CacheHit(string)            { r.hits.Add(1) }
func (r *countingRecorder) CacheMiss(string)           { r.misses.Add(1) }
func (r *countingRecorder) CacheEviction(string)       { r.evictions.Add(1) }
func (r *countingRecorder) CacheRefreshFailure(string) { r.refreshFailures.Add(1) }

func newTestCache(clk *fakeClock, rec Recorder) *Cache[string, int] {
	return New[string, int](Options{
		Name:     "test",
		TTL:      10 * time.Second,
		MaxSize:  3,
		Now:      clk.Now,
		Recorder: rec,
	})
}

func TestSetGet_TTL(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk, nil)

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	clk.Advance(10 * time.Second)
	_, ok = c.Get("a")
	assert.True(t, ok, "age == ttl is still valid")

	clk.Advance(time.Nanosecond)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry dropped on read")
}

func TestSetWithTTL_Override(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk, nil)

	c.SetWithTTL("short", 1, time.Second)
	clk.Advance(2 * time.Second)
	_, ok := c.Get("short")
	assert.False(t, ok)
}

func TestSet_EvictsOldestAtCapacity(t *testing.T) {
	clk := newFakeClock()
	rec := &countingRecorder{}
	c := newTestCache(clk, rec)

	c.Set("a", 1)
	clk.Advance(time.Second)
	c.Set("b", 2)
	clk.Advance(time.Second)
	c.Set("c", 3)
	clk.Advance(time.Second)

	// overwrite at capacity does not evict
	c.Set("b", 20)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, int64(0), rec.evictions.Load())

	c.Set("d", 4)
	assert.Equal(t, 3, c.Len())
	_, ok := c.Entry("a")
	assert.False(t, ok, "oldest entry evicted")
	assert.ElementsMatch(t, []string{"b", "c", "d"}, c.Keys())
	assert.Equal(t, int64(1), rec.evictions.Load())
}

func TestEntry_Freshness(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk, nil)
	c.Set("a", 1)

	e, ok := c.Entry("a")
	require.True(t, ok)
	assert.Less(t, e.StaleTime, e.TTL)
	assert.Equal(t, 8*time.Second, e.StaleTime)

	clk.Advance(9 * time.Second)
	e, _ = c.Entry("a")
	assert.True(t, e.IsStale(clk.Now()))
	assert.False(t, e.IsExpired(clk.Now()))
	assert.Equal(t, 9*time.Second, e.Age(clk.Now()))
}

func TestGetOrFetch_ColdMiss(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk, nil)

	v, err := c.GetOrFetch(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	v, err = c.GetOrFetch(context.Background(), "k", func(context.Context) (int, error) {
		t.Fatal("fetch called on a fresh hit")
		return 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestGetOrFetch_ColdMissErrorPropagates(t *testing.T) {
	c := newTestCache(newFakeClock(), nil)
	boom := errors.New("boom")

	_, err := c.GetOrFetch(context.Background(), "k", func(context.Context) (int, error) { return 0, boom })
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len(), "failures are not cached")
}

func TestGetOrFetch_OneFetchPerColdKey(t *testing.T) {
	c := newTestCache(newFakeClock(), nil)
	var calls atomic.Int64
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrFetch(context.Background(), "k", func(context.Context) (int, error) {
				calls.Add(1)
				<-release
				return 42, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
}

func TestGetOrFetch_StaleRefreshesInBackground(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk, nil)
	c.Set("k", 1)
	clk.Advance(9 * time.Second)

	var calls atomic.Int64
	release := make(chan struct{})
	fetch := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 2, nil
	}

	// stale hits return immediately and start a single refresh
	for i := 0; i < 3; i++ {
		v, err := c.GetOrFetch(context.Background(), "k", fetch)
		require.NoError(t, err)
		assert.Equal(t, 1, v)
	}
	close(release)
	c.Wait()

	assert.Equal(t, int64(1), calls.Load())
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	e, _ := c.Entry("k")
	assert.False(t, e.IsStale(clk.Now()), "refresh resets the timestamp")
}

func TestGetOrFetch_StaleRefreshSurvivesCancel(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk, nil)
	c.Set("k", 1)
	clk.Advance(9 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	v, err := c.GetOrFetch(ctx, "k", func(ctx context.Context) (int, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 5, nil
	})
	cancel()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	c.Wait()

	v, _ = c.Get("k")
	assert.Equal(t, 5, v)
}

func TestGetOrFetch_StaleRefreshFailureKeepsValue(t *testing.T) {
	clk := newFakeClock()
	rec := &countingRecorder{}
	c := newTestCache(clk, rec)
	c.Set("k", 1)
	clk.Advance(9 * time.Second)

	v, err := c.GetOrFetch(context.Background(), "k", func(context.Context) (int, error) {
		return 0, errors.New("upstream down")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	c.Wait()

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, int64(1), rec.refreshFailures.Load())
}

func TestStats(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk, nil)

	c.Set("a", 1)
	clk.Advance(9 * time.Second)
	c.Set("b", 2)

	c.Get("a")
	c.Get("b")
	c.Get("missing")

	s := c.Stats()
	assert.Equal(t, "test", s.Name)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 2, s.Valid)
	assert.Equal(t, 1, s.Stale)
	assert.Equal(t, int64(2), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.InDelta(t, 2.0/3.0, s.HitRate, 1e-9)

	clk.Advance(2 * time.Second)
	s = c.Stats()
	assert.Equal(t, 1, s.Valid)
	assert.Equal(t, 2, s.Total)
}

func TestLookup(t *testing.T) {
	c := newTestCache(newFakeClock(), nil)
	_, err := c.Lookup("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	c.Set("yes", 1)
	v, err := c.Lookup("yes")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestDeleteAndClear(t *testing.T) {
	c := newTestCache(newFakeClock(), nil)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	assert.Equal(t, []string{"b"}, c.Keys())

	c.Get("b")
	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, Stats{Name: "test"}, c.Stats())
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{StaleFraction: 1.5}.withDefaults()
	assert.Equal(t, DefaultStaleFraction, o.StaleFraction)
	assert.Equal(t, 5*time.Minute, o.TTL)
	assert.Equal(t, 1000, o.MaxSize)
	assert.NotNil(t, o.Now)

	c := New[int, string](Options{})
	c.Set(1, "one")
	v, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "one", v)
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int, int](Options{MaxSize: 16})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.Set(i%32, g)
				c.Get(i % 32)
				_, _ = c.GetOrFetch(context.Background(), i%40, func(context.Context) (int, error) { return i, nil })
				_ = c.Stats()
			}
		}(g)
	}
	wg.Wait()
	c.Wait()
	assert.LessOrEqual(t, c.Len(), 16)
}
