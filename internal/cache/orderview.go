package cache

import (
	"sync"
	"time"

	"github.com/campuseats/canteen/internal/domain/model"
)

// Entry is a user's cached current/past order projection.
type Entry struct {
	Current []model.OrderView
	Past    []model.OrderView
}

type record struct {
	entry   Entry
	expires time.Time
}

// OrderViewCache keeps short-lived per-user order projections. It is a read
// accelerator only, never the source of truth; entries expire on TTL and are
// not refreshed when staff change an order status.
type OrderViewCache struct {
	mu      sync.Mutex
	entries map[int64]record
	ttl     time.Duration
	now     func() time.Time
}

// Option customizes cache construction.
type Option func(*OrderViewCache)

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *OrderViewCache) {
		c.now = now
	}
}

// New creates a cache whose entries live for ttl.
func New(ttl time.Duration, opts ...Option) *OrderViewCache {
	c := &OrderViewCache{
		entries: make(map[int64]record),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the entry for userID if present and not expired.
func (c *OrderViewCache) Get(userID int64) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.entries[userID]
	if !ok {
		return Entry{}, false
	}
	if !c.now().Before(rec.expires) {
		delete(c.entries, userID)
		return Entry{}, false
	}
	return rec.entry, true
}

// Put stores the entry for userID with a fresh expiry.
func (c *OrderViewCache) Put(userID int64, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = record{entry: entry, expires: c.now().Add(c.ttl)}
}

// Invalidate drops the entry for userID.
func (c *OrderViewCache) Invalidate(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}
