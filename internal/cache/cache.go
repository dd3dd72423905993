// Package cache implements the process-wide read cache that sits in front of
// leaderboard aggregation. Entries expire after a single global TTL; expiry is
// checked on every read and additionally enforced by a lazy timer per key.
package cache

import (
	"strings"
	"sync"
	"time"
)

// DefaultTTL is the lifetime of a cached entry when no TTL is configured.
const DefaultTTL = 30 * time.Second

// Clock abstracts time so tests can move it by hand.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Observer receives cache events, used for metrics.
type Observer interface {
	Hit(key string)
	Miss(key string)
	Invalidated(key string, removed int)
}

type nopObserver struct{}

func (nopObserver) Hit(string) {}
func (nopObserver) Miss(string) {}
func (nopObserver) Invalidated(string, int) {}

type options struct {
	clock    Clock
	observer Observer
}

// Option configures a Cache.
type Option func(*options)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithObserver installs an event observer.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

type entry[V any] struct {
	value    V
	storedAt time.Time
	timer    *time.Timer
}

// Cache is a TTL key-value store safe for concurrent use.
type Cache[V any] struct {
	mu       sync.Mutex
	ttl      time.Duration
	clock    Clock
	observer Observer
	entries  map[string]*entry[V]
	gen      uint64
}

// New creates a cache with the given TTL. A non-positive TTL falls back to DefaultTTL.
func New[V any](ttl time.Duration, opts ...Option) *Cache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	o := options{clock: systemClock{}, observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		ttl:      ttl,
		clock:    o.clock,
		observer: o.observer,
		entries:  make(map[string]*entry[V]),
	}
}

// TTL returns the configured entry lifetime.
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

// Get returns the value stored under key if it is not older than the TTL.
// Expired entries are evicted.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		c.observer.Miss(key)
		return zero, false
	}
	if c.clock.Now().Sub(e.storedAt) > c.ttl {
		c.removeLocked(key, e)
		c.observer.Miss(key)
		return zero, false
	}
	c.observer.Hit(key)
	return e.value, true
}

// Set stores value under key and schedules its eviction after the TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value)
}

func (c *Cache[V]) setLocked(key string, value V) {
	if old, ok := c.entries[key]; ok {
		old.timer.Stop()
	}
	e := &entry[V]{value: value, storedAt: c.clock.Now()}
	e.timer = time.AfterFunc(c.ttl, func() { c.expire(key, e) })
	c.entries[key] = e
}

// Generation returns a counter bumped by every Invalidate. Readers that compute
// a value on a miss take it before computing and store with SetIfUnchanged.
func (c *Cache[V]) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// SetIfUnchanged stores value only if no Invalidate ran since gen was taken.
// A value computed from data older than the last write is dropped.
func (c *Cache[V]) SetIfUnchanged(key string, value V, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		return false
	}
	c.setLocked(key, value)
	return true
}

// expire runs from the eviction timer. The entry is only dropped if it was not
// replaced in the meantime and the clock agrees it is old enough.
func (c *Cache[V]) expire(key string, e *entry[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.entries[key]
	if !ok || cur != e {
		return
	}
	if c.clock.Now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
	}
}

// Invalidate removes key and every key that has it as a prefix, so
// Invalidate("leaderboard") also drops "leaderboard:clan-a". An empty key
// clears the whole cache. It returns the number of removed entries.
func (c *Cache[V]) Invalidate(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	removed := 0
	for k, e := range c.entries {
		if strings.HasPrefix(k, key) {
			c.removeLocked(k, e)
			removed++
		}
	}
	c.observer.Invalidated(key, removed)
	return removed
}

// Clear drops all entries.
func (c *Cache[V]) Clear() {
	c.Invalidate("")
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops all pending eviction timers and empties the cache.
func (c *Cache[V]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		c.removeLocked(k, e)
	}
}

func (c *Cache[V]) removeLocked(key string, e *entry[V]) {
	e.timer.Stop()
	delete(c.entries, key)
}

// Nop is a cache that never stores anything.
type Nop[V any] struct{}

// Get always misses.
func (Nop[V]) Get(string) (V, bool) {
	var zero V
	return zero, false
}

// Set discards the value.
func (Nop[V]) Set(string, V) {}

// Generation is always zero.
func (Nop[V]) Generation() uint64 { return 0 }

// SetIfUnchanged discards the value.
func (Nop[V]) SetIfUnchanged(string, V, uint64) bool { return false }

// Invalidate does nothing.
func (Nop[V]) Invalidate(string) int { return 0 }
