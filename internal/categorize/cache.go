// Package categorize assigns product categories to search queries through
// the Anthropic API, in fixed-size batches with caching, bounded
// parallelism, and graceful degradation to a sentinel category.
package categorize

import "sync"

// Uncategorized is the sentinel category assigned when classification
// cannot determine a real category for a query.
const Uncategorized = "Uncategorized"

// Cache tracks which queries already have a category within one session.
// Entries are only ever added, never removed. The RetrySentinel policy
// decides whether sentinel entries count as known or as still missing.
type Cache struct {
	mu            sync.RWMutex
	entries       map[string]string
	retrySentinel bool
}

// NewCache creates an empty session cache. With retrySentinel true, queries
// previously marked Uncategorized are reported missing again so later runs
// get another chance at a real category.
func NewCache(retrySentinel bool) *Cache {
	return &Cache{
		entries:       make(map[string]string),
		retrySentinel: retrySentinel,
	}
}

// Get returns the cached category for a query.
func (c *Cache) Get(query string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cat, ok := c.entries[query]
	return cat, ok
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// MissingFrom returns, in input order, the queries that still need
// classification: unknown ones, plus sentinel-categorized ones when the
// retry policy is on.
func (c *Cache) MissingFrom(queries []string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var missing []string
	for _, q := range queries {
		cat, ok := c.entries[q]
		if !ok || (c.retrySentinel && cat == Uncategorized) {
			missing = append(missing, q)
		}
	}
	return missing
}

// PutBatch inserts a batch of classification results in one atomic step.
func (c *Cache) PutBatch(results map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for q, cat := range results {
		c.entries[q] = cat
	}
}

// Snapshot returns a copy of all cached entries.
func (c *Cache) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.entries))
	for q, cat := range c.entries {
		out[q] = cat
	}
	return out
}
