// Package cache keeps a refillable pool of not-yet-dispensed quotes.
package cache

import (
	"context"
	"log"
	"sync"

	"github.com/TobiSchelling/quotefeed/internal/quotes"
	"github.com/TobiSchelling/quotefeed/internal/upstream"
)

// Stats summarizes cache activity since construction.
type Stats struct {
	Cached   int
	Seen     int
	Fetches  int
	Failures int
}

// Cache is a FIFO pool of upstream quotes plus the set of every quote text
// seen since construction. A text is appended at most once per Cache.
type Cache struct {
	src upstream.Source

	mu       sync.Mutex
	items    []quotes.RawQuote
	seen     map[string]struct{}
	fetches  int
	failures int
}

// New creates an empty cache backed by src.
func New(src upstream.Source) *Cache {
	return &Cache{
		src:  src,
		seen: make(map[string]struct{}),
	}
}

// FetchOnce pulls one batch from the source and appends the quotes whose
// text has not been seen before. It returns how many were appended. A
// failed fetch is logged and contributes nothing.
func (c *Cache) FetchOnce(ctx context.Context) int {
	batch, err := c.src.Fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetches++
	if err != nil {
		c.failures++
		log.Printf("Quote fetch failed: %v", err)
		return 0
	}

	added := 0
	for _, q := range batch {
		if _, dup := c.seen[q.Text]; dup {
			continue
		}
		c.seen[q.Text] = struct{}{}
		c.items = append(c.items, q)
		added++
	}
	return added
}

// EnsureAvailable fetches batches until the cache holds at least minCount
// quotes. It stops early as soon as a fetch adds nothing, so an exhausted
// or failing upstream cannot make it spin.
func (c *Cache) EnsureAvailable(ctx context.Context, minCount int) {
	for c.Len() < minCount {
		if ctx.Err() != nil {
			return
		}
		if c.FetchOnce(ctx) == 0 {
			return
		}
	}
}

// Take removes and returns up to count quotes from the front of the cache.
// It never blocks and never refills.
func (c *Cache) Take(count int) []quotes.RawQuote {
	c.mu.Lock()
	defer c.mu.Unlock()

	if count > len(c.items) {
		count = len(c.items)
	}
	if count <= 0 {
		return nil
	}
	out := make([]quotes.RawQuote, count)
	copy(out, c.items[:count])
	c.items = append(c.items[:0:0], c.items[count:]...)
	return out
}

// Remove drops the cached quote matching q by key and text. It reports
// whether a quote was removed; false means another caller drained it first.
func (c *Cache) Remove(q quotes.RawQuote) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := q.Key()
	for i, item := range c.items {
		if item.Key() == key && item.Text == q.Text {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// Uncollected returns a copy of the cached quotes whose key is not in
// exclude, in cache order.
func (c *Cache) Uncollected(exclude map[string]struct{}) []quotes.RawQuote {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]quotes.RawQuote, 0, len(c.items))
	for _, q := range c.items {
		if _, skip := exclude[q.Key()]; skip {
			continue
		}
		out = append(out, q)
	}
	return out
}

// Snapshot returns a copy of the cached quotes in cache order.
func (c *Cache) Snapshot() []quotes.RawQuote {
	return c.Uncollected(nil)
}

// Len returns the number of cached quotes.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a point-in-time summary.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Cached:   len(c.items),
		Seen:     len(c.seen),
		Fetches:  c.fetches,
		Failures: c.failures,
	}
}
