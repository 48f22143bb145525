package pricing

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testEntry(price float64, observedAt time.Time) PricedEntry {
	return PricedEntry{
		Price:      price,
		Source:     "Pokemon TCG API",
		ObservedAt: observedAt,
		Confidence: ConfidenceHigh,
	}
}

func TestCache_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCache().WithNow(fixedNow(now))

	entry := testEntry(12.50, now.Add(-800*time.Millisecond))
	c.Put("base1-4", entry, true)

	rec, ok := c.Get("base1-4")
	require.True(t, ok)
	assert.Equal(t, entry, rec.Entry)
	assert.Equal(t, now, rec.LastUpdated)
	assert.Equal(t, 800*time.Millisecond, rec.FetchLatency)
	assert.Equal(t, 1, rec.Attempts)
	assert.Equal(t, 1.0, rec.SuccessRate)
}

func TestCache_GetAbsent(t *testing.T) {
	c := NewCache()

	_, ok := c.Get("no-such-card")
	assert.False(t, ok)
}

func TestCache_ExpiresAfterMaxAge(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	c := NewCache().WithNow(func() time.Time { return clock })

	c.Put("base1-4", testEntry(12.50, now), true)

	// Just inside the TTL: still served.
	clock = now.Add(DefaultMaxCacheAge - time.Minute)
	_, ok := c.Get("base1-4")
	assert.True(t, ok)

	// Past the TTL: evicted on access.
	clock = now.Add(DefaultMaxCacheAge + time.Minute)
	_, ok = c.Get("base1-4")
	assert.False(t, ok)

	// The eviction is permanent, not just a filtered read.
	assert.Equal(t, 0, c.Len())
}

func TestCache_WithMaxAgeOverride(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	c := NewCache().WithNow(func() time.Time { return clock }).WithMaxAge(1 * time.Hour)

	c.Put("base1-4", testEntry(12.50, now), true)

	clock = now.Add(59 * time.Minute)
	_, ok := c.Get("base1-4")
	assert.True(t, ok)

	clock = now.Add(2 * time.Hour)
	_, ok = c.Get("base1-4")
	assert.False(t, ok)
}

func TestCache_WithMaxAgeIgnoresNonPositive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	c := NewCache().WithNow(func() time.Time { return clock }).WithMaxAge(0)

	c.Put("base1-4", testEntry(12.50, now), true)

	// Default 24h TTL still applies.
	clock = now.Add(23 * time.Hour)
	_, ok := c.Get("base1-4")
	assert.True(t, ok)
}

func TestCache_SuccessRateRunningAverage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCache().WithNow(fixedNow(now))

	rec := c.Put("base1-4", testEntry(10, now), true)
	assert.Equal(t, 1.0, rec.SuccessRate)
	assert.Equal(t, 1, rec.Attempts)

	rec = c.Put("base1-4", testEntry(10, now), false)
	assert.InDelta(t, 0.5, rec.SuccessRate, 1e-9)
	assert.Equal(t, 2, rec.Attempts)

	rec = c.Put("base1-4", testEntry(10, now), true)
	assert.InDelta(t, 2.0/3.0, rec.SuccessRate, 1e-9)
	assert.Equal(t, 3, rec.Attempts)

	assert.GreaterOrEqual(t, rec.SuccessRate, 0.0)
	assert.LessOrEqual(t, rec.SuccessRate, 1.0)
}

func TestCache_FailedFirstWrite(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCache().WithNow(fixedNow(now))

	rec := c.Put("base1-4", testEntry(10, now), false)
	assert.Equal(t, 0.0, rec.SuccessRate)
	assert.Equal(t, 1, rec.Attempts)
}

func TestCache_LastWriteWins(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCache().WithNow(fixedNow(now))

	c.Put("base1-4", testEntry(10, now), true)
	c.Put("base1-4", testEntry(20, now), true)

	rec, ok := c.Get("base1-4")
	require.True(t, ok)
	assert.Equal(t, 20.0, rec.Entry.Price)
	assert.Equal(t, 1, c.Len())
}

func TestCache_ClearIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCache().WithNow(fixedNow(now))

	c.Put("base1-4", testEntry(10, now), true)
	c.Put("base1-58", testEntry(5, now), true)
	require.Equal(t, 2, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCache_AverageFetchLatency(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCache().WithNow(fixedNow(now))

	assert.Equal(t, time.Duration(0), c.AverageFetchLatency())

	c.Put("a", testEntry(10, now.Add(-1*time.Second)), true)
	c.Put("b", testEntry(10, now.Add(-3*time.Second)), true)

	assert.Equal(t, 2*time.Second, c.AverageFetchLatency())
}

func TestCache_AverageFetchLatencySkipsExpired(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := start
	c := NewCache().WithNow(func() time.Time { return clock })

	// A slow fetch that will age out before anyone reads it again.
	c.Put("a", testEntry(10, start.Add(-4*time.Second)), true)

	clock = start.Add(DefaultMaxCacheAge + time.Hour)
	c.Put("b", testEntry(10, clock.Add(-1*time.Second)), true)

	// Only the live record counts; the expired one would have dragged the
	// average to 2.5s.
	assert.Equal(t, 1*time.Second, c.AverageFetchLatency())
	assert.Equal(t, 2, c.Len())
}

func TestCache_ConcurrentWrites(t *testing.T) {
	c := NewCache()
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("card-%d", n%5)
			c.Put(id, testEntry(float64(n), now), n%2 == 0)
			c.Get(id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, c.Len())
	for i := 0; i < 5; i++ {
		rec, ok := c.Get(fmt.Sprintf("card-%d", i))
		require.True(t, ok)
		assert.Equal(t, 10, rec.Attempts)
		assert.GreaterOrEqual(t, rec.SuccessRate, 0.0)
		assert.LessOrEqual(t, rec.SuccessRate, 1.0)
	}
}
