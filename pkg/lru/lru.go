// Package lru provides a small mutex-guarded LRU cache with optional per-entry TTL.
package lru

import (
	"container/list"
	"sync"
	"time"
)

// Cache is a fixed-capacity least-recently-used cache. Safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	maxEntries int
	// order holds *entry values, front = most recent
	order    *list.List
	elements map[K]*list.Element
	now      func() time.Time
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

type setOptions struct {
	ttl time.Duration
}

// Option configures a Set operation.
type Option func(*setOptions)

// WithTTL sets a time-to-live on the entry.
func WithTTL(d time.Duration) Option {
	return func(o *setOptions) {
		o.ttl = d
	}
}

// New returns a Cache holding at most maxEntries entries. A non-positive
// maxEntries is treated as 1.
func New[K comparable, V any](maxEntries int) *Cache[K, V] {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &Cache[K, V]{
		maxEntries: maxEntries,
		order:      list.New(),
		elements:   make(map[K]*list.Element),
		now:        time.Now,
	}
}

// Set inserts or replaces key and marks it most recently used.
func (c *Cache[K, V]) Set(key K, value V, opts ...Option) {
	o := &setOptions{}
	for _, opt := range opts {
		opt(o)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if o.ttl > 0 {
		expiresAt = c.now().Add(o.ttl)
	}

	if elem, ok := c.elements[key]; ok {
		e := elem.Value.(*entry[K, V])
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.maxEntries {
		if back := c.order.Back(); back != nil {
			evicted := c.order.Remove(back).(*entry[K, V])
			delete(c.elements, evicted.key)
		}
	}

	c.elements[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})
}

// Get returns the value for key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.elements[key]
	if !ok {
		return zero, false
	}

	e := elem.Value.(*entry[K, V])
	// Lazy TTL eviction.
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.order.Remove(elem)
		delete(c.elements, key)
		return zero, false
	}

	c.order.MoveToFront(elem)
	return e.value, true
}

// Delete removes key and reports whether it was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.elements[key]
	if !ok {
		return false
	}
	c.order.Remove(elem)
	delete(c.elements, key)
	return true
}

// Keys returns live keys, most recently used first.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var keys []K
	var expired []*list.Element
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*entry[K, V])
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			expired = append(expired, elem)
			continue
		}
		keys = append(keys, e.key)
	}
	for _, elem := range expired {
		e := c.order.Remove(elem).(*entry[K, V])
		delete(c.elements, e.key)
	}
	return keys
}

// Len returns the number of entries, including expired ones not yet evicted.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
