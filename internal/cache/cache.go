// Package cache memoizes dataset loads per name, keyed additionally by a
// freshness token and bounded by a time-to-live.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/craftbits/executive-portal/internal/logger"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is the entry lifetime when none is configured.
const DefaultTTL = time.Hour

// DefaultLoadTimeout bounds one shared load.
const DefaultLoadTimeout = 2 * time.Minute

// LoadFunc produces the value for a name. It must be side-effect free;
// concurrent duplicate calls are tolerated.
type LoadFunc[T any] func(ctx context.Context, name string) (T, error)

// FreshnessFunc returns the change token for a name, e.g. a file mtime.
type FreshnessFunc func(name string) float64

type entry[T any] struct {
	token    float64
	value    T
	loadedAt time.Time
}

// Stats counts cache activity.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Loads  uint64 `json:"loads"`
	Size   int    `json:"size"`
}

// Cache holds one entry per name. An entry is served while its token matches
// the caller's token and it is younger than the TTL; otherwise it is reloaded
// and replaced wholesale. Failed loads are not cached.
//
// A load is shared by every caller waiting on it, so it runs detached from
// any one caller's cancellation and is bounded by the load timeout instead.
type Cache[T any] struct {
	load        LoadFunc[T]
	freshness   FreshnessFunc
	ttl         time.Duration
	loadTimeout time.Duration
	now         func() time.Time
	log         *logger.Logger

	mu      sync.RWMutex
	entries map[string]entry[T]
	// generations are bumped by Invalidate; epoch by Purge. A load started
	// under an older generation is returned to its callers but not stored.
	generations map[string]uint64
	epoch       uint64
	group       singleflight.Group
	stats       Stats
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	ttl         time.Duration
	loadTimeout time.Duration
	now         func() time.Time
	freshness FreshnessFunc
	log       *logger.Logger
}

// WithTTL sets the entry lifetime. Non-positive values keep the default.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithLoadTimeout bounds a single load. Non-positive values keep the default.
func WithLoadTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.loadTimeout = d
		}
	}
}

// WithClock replaces time.Now, so tests can expire entries deterministically.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithFreshness sets the token source used by Get.
func WithFreshness(fn FreshnessFunc) Option {
	return func(o *options) { o.freshness = fn }
}

// WithLogger sets the logger used for load diagnostics.
func WithLogger(log *logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// New creates a cache around load.
func New[T any](load LoadFunc[T], opts ...Option) *Cache[T] {
	o := options{
		ttl:         DefaultTTL,
		loadTimeout: DefaultLoadTimeout,
		now:         time.Now,
		freshness:   func(string) float64 { return 0 },
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{
		load:        load,
		freshness:   o.freshness,
		ttl:         o.ttl,
		loadTimeout: o.loadTimeout,
		now:         o.now,
		log:         o.log,
		entries:     make(map[string]entry[T]),
		generations: make(map[string]uint64),
	}
}

// TTL returns the configured entry lifetime.
func (c *Cache[T]) TTL() time.Duration { return c.ttl }

// Get is GetOrLoad with the token taken from the freshness function.
func (c *Cache[T]) Get(ctx context.Context, name string) (T, error) {
	return c.GetOrLoad(ctx, name, c.freshness(name))
}

// GetOrLoad returns the cached value for name when its token equals token
// and it has not expired; otherwise it loads, stores and returns a new value.
// Concurrent misses for the same (name, token) share one load. If ctx is done
// first, GetOrLoad returns ctx's error and the load carries on for the others.
func (c *Cache[T]) GetOrLoad(ctx context.Context, name string, token float64) (T, error) {
	var zero T
	if v, ok := c.lookup(name, token); ok {
		return v, nil
	}

	gen := c.generation(name)
	key := fmt.Sprintf("%s@%s#%d.%d", name, strconv.FormatFloat(token, 'g', -1, 64), gen.epoch, gen.name)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		// another caller may have stored it while we waited on the group
		if v, ok := c.peek(name, token); ok {
			return v, nil
		}

		c.log.Debug("Cache miss, loading", map[string]interface{}{
			"dataset": name,
			"token":   token,
		})
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()
		v, err := c.load(loadCtx, name)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.current(name) != gen {
			c.log.Debug("Dataset invalidated during load, not caching", map[string]interface{}{
				"dataset": name,
			})
			return v, nil
		}
		c.entries[name] = entry[T]{token: token, value: v, loadedAt: c.now()}
		c.stats.Loads++
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, fmt.Errorf("cache load %s: %w", name, res.Err)
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, fmt.Errorf("cache load %s: %w", name, ctx.Err())
	}
}

// Invalidate drops the entry for name. A load already in flight for name is
// not stored.
func (c *Cache[T]) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
	c.generations[name]++
}

// Purge drops every entry, including the results of loads in flight.
func (c *Cache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[T])
	c.epoch++
}

// Stats returns a snapshot of the counters.
func (c *Cache[T]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Size = len(c.entries)
	return s
}

// lookup is peek plus hit/miss accounting.
func (c *Cache[T]) lookup(name string, token float64) (T, bool) {
	v, ok := c.peek(name, token)
	c.mu.Lock()
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	c.mu.Unlock()
	return v, ok
}

// generation identifies the invalidation state a load starts under.
type generation struct {
	epoch uint64
	name  uint64
}

func (c *Cache[T]) generation(name string) generation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current(name)
}

// current requires c.mu to be held.
func (c *Cache[T]) current(name string) generation {
	return generation{epoch: c.epoch, name: c.generations[name]}
}

func (c *Cache[T]) peek(name string, token float64) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	if !ok || e.token != token || c.now().Sub(e.loadedAt) >= c.ttl {
		var zero T
		return zero, false
	}
	return e.value, true
}
