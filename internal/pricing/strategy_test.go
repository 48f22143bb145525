package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func record(latency time.Duration, successRate float64) CacheRecord {
	return CacheRecord{
		Entry:        PricedEntry{Price: 10, Confidence: ConfidenceHigh},
		FetchLatency: latency,
		SuccessRate:  successRate,
		Attempts:     4,
	}
}

func TestShouldUseCache_FreshAndExpensive(t *testing.T) {
	// Younger than 1h, and the fetch that produced it took over 3s.
	rec := record(4*time.Second, 0.5)
	assert.True(t, ShouldUseCache(rec, 30*time.Minute, 100))

	// Same latency but too old.
	assert.False(t, ShouldUseCache(rec, 90*time.Minute, 100))

	// Fresh but the fetch was cheap.
	cheap := record(500*time.Millisecond, 0.5)
	assert.False(t, ShouldUseCache(cheap, 30*time.Minute, 100))
}

func TestShouldUseCache_PoorHealth(t *testing.T) {
	rec := record(time.Second, 0.5)

	// Health under 50 with sub-6h data: treat as fresh enough.
	assert.True(t, ShouldUseCache(rec, 5*time.Hour, 40))
	assert.False(t, ShouldUseCache(rec, 7*time.Hour, 40))
	assert.False(t, ShouldUseCache(rec, 5*time.Hour, 60))
}

func TestShouldUseCache_HighSuccessRate(t *testing.T) {
	good := record(time.Second, 0.9)
	assert.True(t, ShouldUseCache(good, 90*time.Minute, 100))
	assert.False(t, ShouldUseCache(good, 3*time.Hour, 100))

	mediocre := record(time.Second, 0.7)
	assert.False(t, ShouldUseCache(mediocre, 90*time.Minute, 100))
}

func TestChooseStrategy_NoCache(t *testing.T) {
	// Nothing cached: must attempt upstream regardless of health.
	assert.Equal(t, StrategyAPIFirst, ChooseStrategy(nil, 0, 100))
	assert.Equal(t, StrategyAPIFirst, ChooseStrategy(nil, 0, 10))
}

func TestChooseStrategy_HealthyAndOld(t *testing.T) {
	rec := record(time.Second, 0.5)
	assert.Equal(t, StrategyAPIFirst, ChooseStrategy(&rec, 5*time.Hour, 80))
}

func TestChooseStrategy_UnhealthyUpstream(t *testing.T) {
	rec := record(time.Second, 0.5)
	assert.Equal(t, StrategyCacheFirst, ChooseStrategy(&rec, 5*time.Hour, 20))
	assert.Equal(t, StrategyCacheFirst, ChooseStrategy(&rec, 10*time.Hour, 20))
}

func TestChooseStrategy_ModeratelyOld(t *testing.T) {
	rec := record(time.Second, 0.5)

	// Between 2 and 8 hours with middling health: race.
	assert.Equal(t, StrategyParallel, ChooseStrategy(&rec, 3*time.Hour, 60))
	assert.Equal(t, StrategyParallel, ChooseStrategy(&rec, 7*time.Hour, 60))
}

func TestChooseStrategy_Default(t *testing.T) {
	rec := record(time.Second, 0.5)

	// Fresh-ish cache, middling health: default to cache-first.
	assert.Equal(t, StrategyCacheFirst, ChooseStrategy(&rec, 1*time.Hour, 60))
	assert.Equal(t, StrategyCacheFirst, ChooseStrategy(&rec, 9*time.Hour, 60))
}

func TestChooseStrategy_RuleOrder(t *testing.T) {
	rec := record(time.Second, 0.5)

	// Healthy + old wins over the parallel window (5h is inside 2-8h).
	assert.Equal(t, StrategyAPIFirst, ChooseStrategy(&rec, 5*time.Hour, 80))

	// Unhealthy wins over the parallel window.
	assert.Equal(t, StrategyCacheFirst, ChooseStrategy(&rec, 5*time.Hour, 20))
}

func TestStrategy_String(t *testing.T) {
	assert.Equal(t, "api-first", StrategyAPIFirst.String())
	assert.Equal(t, "cache-first", StrategyCacheFirst.String())
	assert.Equal(t, "parallel", StrategyParallel.String())
	assert.Equal(t, "unknown", Strategy(99).String())
}
