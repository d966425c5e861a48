package cache

import (
	"sync"
	"time"
)

// Tiered is a concurrency-safe in-memory store with three independently
// expiring slots per key: a fresh copy, a longer-lived stale copy of the
// same payload, and a negative "don't retry yet" backoff flag. It is the
// single-process substitution point for an external cache service.
type Tiered[T any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[T]
	now     func() time.Time
}

type entry[T any] struct {
	payload      T
	hasPayload   bool
	freshUntil   time.Time
	staleUntil   time.Time
	backoffUntil time.Time
}

// New creates an empty tiered store.
func New[T any]() *Tiered[T] {
	return NewWithClock[T](time.Now)
}

// NewWithClock creates a tiered store with an injectable clock, so tests
// can move time without sleeping.
func NewWithClock[T any](now func() time.Time) *Tiered[T] {
	return &Tiered[T]{
		entries: make(map[string]*entry[T]),
		now:     now,
	}
}

// Put stores the payload in both the fresh and stale slots and clears any
// backoff flag for the key.
func (c *Tiered[T]) Put(key string, payload T, freshTTL, staleTTL time.Duration) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry[T]{
		payload:    payload,
		hasPayload: true,
		freshUntil: now.Add(freshTTL),
		staleUntil: now.Add(staleTTL),
	}
	c.prune(now)
}

// Fresh returns the payload if the fresh slot has not expired.
func (c *Tiered[T]) Fresh(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !e.hasPayload || c.now().After(e.freshUntil) {
		var zero T
		return zero, false
	}
	return e.payload, true
}

// Stale returns the payload if the stale slot has not expired. The fresh
// slot may already be gone; that is the point.
func (c *Tiered[T]) Stale(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !e.hasPayload || c.now().After(e.staleUntil) {
		var zero T
		return zero, false
	}
	return e.payload, true
}

// SetBackoff flags the key so callers skip the upstream for ttl. The
// payload slots are left untouched.
func (c *Tiered[T]) SetBackoff(key string, ttl time.Duration) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		e = &entry[T]{}
		c.entries[key] = e
	}
	e.backoffUntil = now.Add(ttl)
	c.prune(now)
}

// InBackoff reports whether the key's negative flag is still active.
func (c *Tiered[T]) InBackoff(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	return ok && c.now().Before(e.backoffUntil)
}

// prune drops entries whose every slot has expired. Caller holds the
// write lock.
func (c *Tiered[T]) prune(now time.Time) {
	for key, e := range c.entries {
		if now.After(e.staleUntil) && now.After(e.backoffUntil) {
			delete(c.entries, key)
		}
	}
}
