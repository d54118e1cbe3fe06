// Package ttlcache provides a small bounded key/value cache with per-entry
// expiration. Entries past their TTL are treated as absent on lookup; when the
// cache is full, the oldest-inserted entries are evicted to make room.
package ttlcache

import (
	"container/list"
	"sync"
	"time"
)

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// Cache is safe for concurrent use.
type Cache[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	items    map[string]*list.Element
	order    *list.List // front = oldest insertion
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithClock replaces the time source, so tests can control expiry
// deterministically.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		c.now = now
	}
}

// New returns a cache holding at most capacity entries, each valid for ttl
// after insertion.
func New[V any](capacity int, ttl time.Duration, opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the live value for key. Expired entries are removed and reported
// as absent.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}
	ent := elem.Value.(*entry[V])
	if !c.now().Before(ent.expiresAt) {
		c.remove(elem)
		return zero, false
	}
	return ent.value, true
}

// Set inserts or replaces the value for key, resetting its TTL. Replacing an
// entry also moves it to the back of the eviction order.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry[V])
		ent.value = value
		ent.expiresAt = c.now().Add(c.ttl)
		c.order.MoveToBack(elem)
		return
	}

	for len(c.items) >= c.capacity {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.remove(oldest)
	}

	ent := &entry[V]{key: key, value: value, expiresAt: c.now().Add(c.ttl)}
	c.items[key] = c.order.PushBack(ent)
}

// Delete removes key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

// Len reports the number of stored entries, including any not yet observed to
// be expired.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache[V]) remove(elem *list.Element) {
	ent := elem.Value.(*entry[V])
	delete(c.items, ent.key)
	c.order.Remove(elem)
}
