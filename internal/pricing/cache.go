package pricing

import (
	"sync"
	"time"
)

// DefaultMaxCacheAge is how long a cached price stays servable. Records
// older than this are evicted on next access.
const DefaultMaxCacheAge = 24 * time.Hour

// CacheRecord wraps a PricedEntry with per-card fetch bookkeeping.
type CacheRecord struct {
	Entry        PricedEntry   `json:"entry"`
	LastUpdated  time.Time     `json:"last_updated"`
	FetchLatency time.Duration `json:"fetch_latency"`

	// SuccessRate is the running fraction of fetch attempts for this card
	// that succeeded, weighted by Attempts.
	SuccessRate float64 `json:"success_rate"`
	Attempts    int     `json:"attempts"`
}

// Age returns how long ago the record was last written.
func (r CacheRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.LastUpdated)
}

// Cache is the keyed in-memory store of resolved prices. One record per
// card id, last write wins. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	records map[string]CacheRecord
	maxAge  time.Duration

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewCache creates an empty cache with the default 24h max age.
func NewCache() *Cache {
	return &Cache{
		records: make(map[string]CacheRecord),
		maxAge:  DefaultMaxCacheAge,
		nowFunc: time.Now,
	}
}

// WithNow sets the clock source. For tests.
func (c *Cache) WithNow(now func() time.Time) *Cache {
	c.nowFunc = now
	return c
}

// WithMaxAge overrides the max record age. Non-positive values keep the
// default.
func (c *Cache) WithMaxAge(maxAge time.Duration) *Cache {
	if maxAge > 0 {
		c.maxAge = maxAge
	}
	return c
}

// Get returns the record for cardID if present and younger than the max
// age. Records past the max age are evicted and reported absent.
func (c *Cache) Get(cardID string) (CacheRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[cardID]
	if !ok {
		return CacheRecord{}, false
	}
	if c.nowFunc().Sub(rec.LastUpdated) > c.maxAge {
		delete(c.records, cardID)
		return CacheRecord{}, false
	}
	return rec, true
}

// Put stores entry for cardID and folds the attempt outcome into the
// record's running success rate. Attempts increments by one per write
// regardless of outcome. Returns the stored record.
func (c *Cache) Put(cardID string, entry PricedEntry, success bool) CacheRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()
	outcome := 0.0
	if success {
		outcome = 1.0
	}

	rec := CacheRecord{
		Entry:        entry,
		LastUpdated:  now,
		FetchLatency: now.Sub(entry.ObservedAt),
		SuccessRate:  outcome,
		Attempts:     1,
	}
	if prev, ok := c.records[cardID]; ok {
		rec.SuccessRate = (prev.SuccessRate*float64(prev.Attempts) + outcome) / float64(prev.Attempts+1)
		rec.Attempts = prev.Attempts + 1
	}
	c.records[cardID] = rec
	return rec
}

// Clear drops all records.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = make(map[string]CacheRecord)
}

// Len returns the number of stored records, including any not yet evicted
// by access.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// AverageFetchLatency returns the mean fetch latency across records still
// within the max age, or zero when none qualify. Expired records awaiting
// eviction do not skew the average.
func (c *Cache) AverageFetchLatency() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()
	var total time.Duration
	var n int
	for _, rec := range c.records {
		if now.Sub(rec.LastUpdated) > c.maxAge {
			continue
		}
		total += rec.FetchLatency
		n++
	}
	if n == 0 {
		return 0
	}
	return total / time.Duration(n)
}
