package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU is a size-bounded cache whose entries also expire after a TTL.
// A zero TTL disables the cache: Set is ignored and Get always misses.
type LRU[K comparable, V any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	items   map[K]*list.Element
	order   *list.List
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// NewLRU creates a cache holding at most maxSize entries for ttl each.
func NewLRU[K comparable, V any](maxSize int, ttl time.Duration) *LRU[K, V] {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &LRU[K, V]{
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		items:   make(map[K]*list.Element),
		order:   list.New(),
	}
}

// WithClock replaces the time source; used in tests.
func (c *LRU[K, V]) WithClock(now func() time.Time) *LRU[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}

	e := elem.Value.(*entry[K, V])
	if !c.now().Before(e.expiresAt) {
		c.remove(elem)
		return zero, false
	}

	c.order.MoveToFront(elem)
	return e.value, true
}

func (c *LRU[K, V]) Set(key K, value V) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[K, V]{key: key, value: value, expiresAt: c.now().Add(c.ttl)}
	if elem, ok := c.items[key]; ok {
		elem.Value = e
		c.order.MoveToFront(elem)
		return
	}

	c.items[key] = c.order.PushFront(e)
	for c.order.Len() > c.maxSize {
		c.remove(c.order.Back())
	}
}

func (c *LRU[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

// Purge drops every entry.
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*list.Element)
	c.order.Init()
}

func (c *LRU[K, V]) remove(elem *list.Element) {
	e := elem.Value.(*entry[K, V])
	delete(c.items, e.key)
	c.order.Remove(elem)
}

// CleanExpired removes expired entries and returns how many were dropped.
func (c *LRU[K, V]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if !now.Before(elem.Value.(*entry[K, V]).expiresAt) {
			c.remove(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
