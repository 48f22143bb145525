package pricing

import "time"

// Strategy selects how a resolution call talks to the upstream provider.
type Strategy int

const (
	// StrategyAPIFirst tries the upstream first and falls back to cache.
	StrategyAPIFirst Strategy = iota
	// StrategyCacheFirst serves cache immediately and refreshes in the
	// background.
	StrategyCacheFirst
	// StrategyParallel races the upstream against a short timer, serving
	// cache if the upstream is slow.
	StrategyParallel
)

func (s Strategy) String() string {
	switch s {
	case StrategyAPIFirst:
		return "api-first"
	case StrategyCacheFirst:
		return "cache-first"
	case StrategyParallel:
		return "parallel"
	default:
		return "unknown"
	}
}

// Thresholds for the short-circuit and strategy decision tables.
const (
	slowFetchThreshold = 3 * time.Second

	shortCircuitFreshAge  = 1 * time.Hour
	shortCircuitStaleAge  = 6 * time.Hour
	shortCircuitRecentAge = 2 * time.Hour
	shortCircuitGoodRate  = 0.8

	healthPoor    = 30.0
	healthShaky   = 50.0
	healthHealthy = 70.0

	strategyOldAge      = 4 * time.Hour
	strategyParallelMin = 2 * time.Hour
	strategyParallelMax = 8 * time.Hour
)

// ShouldUseCache reports whether a cached record is good enough to return
// without any fetch attempt:
//   - very recent data whose fetch was expensive to obtain,
//   - poor upstream health with recent-ish data,
//   - a high per-card success rate with recent data.
func ShouldUseCache(rec CacheRecord, age time.Duration, health float64) bool {
	if age < shortCircuitFreshAge && rec.FetchLatency > slowFetchThreshold {
		return true
	}
	if health < healthShaky && age < shortCircuitStaleAge {
		return true
	}
	if rec.SuccessRate > shortCircuitGoodRate && age < shortCircuitRecentAge {
		return true
	}
	return false
}

// ChooseStrategy picks the execution strategy for a resolution call. It is
// a pure function of the cached record (nil when absent), its age, and the
// current health score; first matching rule wins.
func ChooseStrategy(rec *CacheRecord, age time.Duration, health float64) Strategy {
	// Nothing to fall back to, must attempt upstream.
	if rec == nil {
		return StrategyAPIFirst
	}

	// Healthy upstream and an aging cache: go get fresh data.
	if health > healthHealthy && age > strategyOldAge {
		return StrategyAPIFirst
	}

	// Unhealthy upstream: lean on the cache.
	if health < healthPoor {
		return StrategyCacheFirst
	}

	// Moderately old cache, upstream performance unclear: race them.
	if age > strategyParallelMin && age < strategyParallelMax {
		return StrategyParallel
	}

	return StrategyCacheFirst
}
