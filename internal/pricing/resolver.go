package pricing

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultRaceTimeout is how long the parallel strategy waits for the
// upstream before falling back to the cached value.
const DefaultRaceTimeout = 1 * time.Second

// ResolverConfig tunes the resolution façade.
type ResolverConfig struct {
	// RaceTimeout bounds the parallel strategy's wait. Default: 1s.
	RaceTimeout time.Duration

	// RefreshJitter bounds the background refresh delay. Zero uses the
	// default, negative disables the delay.
	RefreshJitter time.Duration

	// Observer, if set, is called after every cache write produced by a
	// completed fetch. Used to persist price history.
	Observer func(cardID string, entry PricedEntry)
}

// Stats is a read-only diagnostics snapshot of the resolver.
type Stats struct {
	CacheSize           int     `json:"cache_size"`
	HealthScore         float64 `json:"health_score"`
	AverageFetchLatency int64   `json:"average_fetch_latency_ms"`
}

// Resolver is the public entry point for price resolution. Given a card id
// and display name it returns a priced entry, orchestrating the cache,
// health monitor, strategy selection, and the fetch paths. It never
// returns an error: upstream failures degrade to the cached value or an
// absent result.
type Resolver struct {
	cache  *Cache
	health *HealthMonitor
	exec   *Executor
	sched  *Scheduler

	raceTimeout time.Duration
	observer    func(cardID string, entry PricedEntry)

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewResolver wires a resolver over the given cache, health monitor, and
// executor, creating its own background scheduler.
func NewResolver(cache *Cache, health *HealthMonitor, exec *Executor, cfg ResolverConfig) *Resolver {
	if cfg.RaceTimeout <= 0 {
		cfg.RaceTimeout = DefaultRaceTimeout
	}
	sched := NewScheduler(exec, cache, cfg.RefreshJitter)
	sched.observer = cfg.Observer
	return &Resolver{
		cache:       cache,
		health:      health,
		exec:        exec,
		sched:       sched,
		raceTimeout: cfg.RaceTimeout,
		observer:    cfg.Observer,
		nowFunc:     time.Now,
	}
}

// WithNow sets the clock source. For tests.
func (r *Resolver) WithNow(now func() time.Time) *Resolver {
	r.nowFunc = now
	return r
}

type fetchResult struct {
	entry *PricedEntry
	err   error
}

// ResolvePrice resolves the price for one card. Returns nil when the price
// is currently unknown; it never returns an error.
func (r *Resolver) ResolvePrice(ctx context.Context, cardID, cardName string) *PricedEntry {
	health := r.health.Read()

	rec, ok := r.cache.Get(cardID)
	if ok {
		age := rec.Age(r.nowFunc())
		if ShouldUseCache(rec, age, health) {
			zap.L().Debug("serving cached price",
				zap.String("card", cardName),
				zap.Duration("age", age),
			)
			entry := rec.Entry
			return &entry
		}
	}

	var cached *CacheRecord
	var age time.Duration
	if ok {
		cached = &rec
		age = rec.Age(r.nowFunc())
	}

	strategy := ChooseStrategy(cached, age, health)
	zap.L().Debug("resolution strategy chosen",
		zap.String("card", cardName),
		zap.Stringer("strategy", strategy),
		zap.Float64("health", health),
	)

	switch strategy {
	case StrategyAPIFirst:
		return r.resolveAPIFirst(ctx, cardID, cardName, cached)
	case StrategyCacheFirst:
		return r.resolveCacheFirst(ctx, cardID, cardName, cached)
	case StrategyParallel:
		return r.resolveParallel(ctx, cardID, cardName, cached)
	default:
		return cachedEntry(cached)
	}
}

// resolveAPIFirst attempts the upstream and falls back to whatever is
// cached on failure or an empty result.
func (r *Resolver) resolveAPIFirst(ctx context.Context, cardID, cardName string, cached *CacheRecord) *PricedEntry {
	entry, err := r.exec.Fetch(ctx, cardID, cardName)
	if err == nil && entry != nil {
		r.commit(cardID, *entry)
		return entry
	}
	return cachedEntry(cached)
}

// resolveCacheFirst serves the cached entry immediately and schedules a
// background refresh for next time. With nothing cached it degrades to a
// synchronous fetch.
func (r *Resolver) resolveCacheFirst(ctx context.Context, cardID, cardName string, cached *CacheRecord) *PricedEntry {
	if cached != nil {
		r.sched.ScheduleRefresh(cardID, cardName)
		entry := cached.Entry
		return &entry
	}

	entry, err := r.exec.Fetch(ctx, cardID, cardName)
	if err != nil || entry == nil {
		return nil
	}
	r.commit(cardID, *entry)
	return entry
}

// resolveParallel starts the fetch and races it against a short timer. A
// fast fetch wins outright; a slow one loses to the cached value but keeps
// running detached, updating the cache for next time when it completes.
func (r *Resolver) resolveParallel(ctx context.Context, cardID, cardName string, cached *CacheRecord) *PricedEntry {
	results := make(chan fetchResult, 1)
	go func() {
		// Detached from the caller: the race timer stops us waiting, it
		// must not cancel the fetch itself.
		entry, err := r.exec.Fetch(context.WithoutCancel(ctx), cardID, cardName)
		results <- fetchResult{entry: entry, err: err}
	}()

	timer := time.NewTimer(r.raceTimeout)
	defer timer.Stop()

	select {
	case res := <-results:
		if res.err == nil && res.entry != nil {
			r.commit(cardID, *res.entry)
			return res.entry
		}
		return cachedEntry(cached)

	case <-timer.C:
		zap.L().Debug("upstream slow, serving cache while fetch finishes",
			zap.String("card", cardName),
		)
		go func() {
			res := <-results
			switch {
			case res.err == nil && res.entry != nil:
				r.commit(cardID, *res.entry)
			case res.err != nil:
				r.health.Adjust(healthBackgroundFail)
			}
		}()
		return cachedEntry(cached)
	}
}

// commit writes a fetched entry to the cache and notifies the observer.
func (r *Resolver) commit(cardID string, entry PricedEntry) {
	r.cache.Put(cardID, entry, true)
	if r.observer != nil {
		r.observer(cardID, entry)
	}
}

// Invalidate drops all cached entries; used by forced-refresh operations.
func (r *Resolver) Invalidate() {
	r.cache.Clear()
	zap.L().Info("price cache cleared")
}

// Stats returns a diagnostics snapshot for operational dashboards.
func (r *Resolver) Stats() Stats {
	return Stats{
		CacheSize:           r.cache.Len(),
		HealthScore:         r.health.Read(),
		AverageFetchLatency: r.cache.AverageFetchLatency().Milliseconds(),
	}
}

// Drain blocks until in-flight background refreshes finish. For shutdown
// and tests.
func (r *Resolver) Drain() {
	r.sched.Wait()
}

func cachedEntry(rec *CacheRecord) *PricedEntry {
	if rec == nil {
		return nil
	}
	entry := rec.Entry
	return &entry
}
