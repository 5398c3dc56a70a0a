// Package ttlcache provides a bounded in-memory key/value store with
// per-entry time-based expiry. Entries expire lazily on read and are swept
// on write; when the store is full the oldest-inserted entry is evicted
// (insertion order, not access order).
package ttlcache

import (
	"sync"
	"time"
)

const (
	// DefaultTTL is applied when Set is called without an explicit ttl.
	DefaultTTL = 5 * time.Minute

	// DefaultMaxSize bounds the number of live entries.
	DefaultMaxSize = 100
)

type entry[V any] struct {
	value      V
	insertedAt time.Time
	ttl        time.Duration
}

func (e entry[V]) expired(now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.insertedAt) > e.ttl
}

// Cache is a mutex-guarded TTL cache. The zero value is not usable; use New.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	defaultTTL time.Duration
	maxSize    int
	entries    map[K]entry[V]
	order      []K // insertion order, oldest first

	// now is swappable for tests
	now func() time.Time
}

// New creates a cache with the default TTL and capacity.
func New[K comparable, V any]() *Cache[K, V] {
	return NewWithConfig[K, V](DefaultTTL, DefaultMaxSize)
}

// NewWithConfig creates a cache with a custom default TTL and capacity.
// A non-positive maxSize falls back to DefaultMaxSize.
func NewWithConfig[K comparable, V any](defaultTTL time.Duration, maxSize int) *Cache[K, V] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Cache[K, V]{
		defaultTTL: defaultTTL,
		maxSize:    maxSize,
		entries:    make(map[K]entry[V]),
		now:        time.Now,
	}
}

// Set stores value under key with the default TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores value under key with an explicit TTL. Expired entries
// are swept first; if the cache is still at capacity the oldest-inserted
// entry is evicted. Re-setting an existing key keeps its insertion position.
func (c *Cache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepLocked()

	if _, exists := c.entries[key]; !exists {
		if len(c.entries) >= c.maxSize {
			c.evictOldestLocked()
		}
		c.order = append(c.order, key)
	}

	c.entries[key] = entry[V]{
		value:      value,
		insertedAt: c.now(),
		ttl:        ttl,
	}
}

// Get returns the value for key. An entry whose age exceeds its TTL is
// deleted and reported absent.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if e.expired(c.now()) {
		c.deleteLocked(key)
		return zero, false
	}
	return e.value, true
}

// Has reports whether a live entry exists for key.
func (c *Cache[K, V]) Has(key K) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes the entry for key.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteLocked(key)
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]entry[V])
	c.order = nil
}

// Size returns the number of live entries after sweeping expired ones.
func (c *Cache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	return len(c.entries)
}

// Keys returns the live keys in insertion order.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	keys := make([]K, len(c.order))
	copy(keys, c.order)
	return keys
}

func (c *Cache[K, V]) deleteLocked(key K) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cache[K, V]) sweepLocked() {
	now := c.now()
	remaining := c.order[:0]
	for _, k := range c.order {
		if e, ok := c.entries[k]; ok && e.expired(now) {
			delete(c.entries, k)
			continue
		}
		remaining = append(remaining, k)
	}
	c.order = remaining
}

func (c *Cache[K, V]) evictOldestLocked() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	delete(c.entries, oldest)
	c.order = c.order[1:]
}
