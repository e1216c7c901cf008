// Package cache memoizes successful responses for a short time.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const DefaultTTL = 5 * time.Minute

// Result is a value that knows whether it represents a success. Only
// successes are stored.
type Result interface {
	Succeeded() bool
}

type entry[V Result] struct {
	value      V
	insertedAt time.Time
}

// Cache is keyed by a caller-chosen semantic key. Entries expire by age only;
// nothing bounds the number of keys.
type Cache[V Result] struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.Mutex
	items map[string]entry[V]
	group singleflight.Group
}

func New[V Result](ttl time.Duration) *Cache[V] {
	return NewWithClock[V](ttl, time.Now)
}

func NewWithClock[V Result](ttl time.Duration, now func() time.Time) *Cache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[V]{ttl: ttl, now: now, items: make(map[string]entry[V])}
}

// Get returns a stored value younger than the TTL.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok || c.now().Sub(e.insertedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// GetOrCompute returns the stored value for key or runs producer. Concurrent
// misses on one key share a single producer call. Failed results are returned
// but not stored.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, producer func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := producer(ctx)
		if err != nil {
			return v, err
		}
		if v.Succeeded() {
			c.mu.Lock()
			c.items[key] = entry[V]{value: v, insertedAt: c.now()}
			c.mu.Unlock()
		}
		return v, nil
	})
	v, _ := res.(V)
	return v, err
}

// Len counts stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]entry[V])
}
