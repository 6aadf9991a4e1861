// Package dnscache provides a thread-safe, bounded LRU cache for
// domain resolution outcomes. Only definitive outcomes belong here:
// the caller gates on Outcome.Cacheable before storing, so a transient
// network blip can never permanently mis-classify a domain.
package dnscache

import (
	"container/list"
	"sync"

	"github.com/ourcaldo/emval/internal/dnsresolver"
)

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	CurrSize int   `json:"currsize"`
	MaxSize  int   `json:"maxsize"`
}

// Cache is a bounded LRU mapping domain → resolution outcome.
// Every read that hits moves the entry to the most-recently-used
// position; inserts beyond capacity evict the least-recently-used
// entry. Size never exceeds capacity.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
	hits     int64
	misses   int64
}

type cacheEntry struct {
	domain  string
	outcome dnsresolver.Outcome
}

// New creates a cache holding at most capacity domains. A capacity of
// zero or less falls back to 10000, matching the bulk-validation
// default.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 10000
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the cached outcome for a domain and marks it recently
// used.
func (c *Cache) Get(domain string) (dnsresolver.Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[domain]
	if !ok {
		c.misses++
		return dnsresolver.Outcome{}, false
	}
	c.hits++
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).outcome, true
}

// Put stores a definitive outcome for a domain, evicting the
// least-recently-used entry when the cache is full. Storing a
// transient outcome is a caller bug; Put drops it to preserve the
// cache invariant.
func (c *Cache) Put(domain string, outcome dnsresolver.Outcome) {
	if !outcome.Cacheable {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[domain]; ok {
		elem.Value.(*cacheEntry).outcome = outcome
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&cacheEntry{domain: domain, outcome: outcome})
	c.entries[domain] = elem

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).domain)
		}
	}
}

// Stats returns the hit/miss counters and current size.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:     c.hits,
		Misses:   c.misses,
		CurrSize: c.order.Len(),
		MaxSize:  c.capacity,
	}
}

// Clear drops all entries and resets the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.hits = 0
	c.misses = 0
}
