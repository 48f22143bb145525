// Package monitoring gathers operational snapshots of the pricing service.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/cardintel/cardintel/internal/pricing"
	"github.com/cardintel/cardintel/internal/store"
)

// MetricsSnapshot holds a point-in-time view of system health.
type MetricsSnapshot struct {
	// Resolver metrics.
	CacheSize         int     `json:"cache_size"`
	HealthScore       float64 `json:"health_score"`
	AvgFetchLatencyMs int64   `json:"avg_fetch_latency_ms"`

	// Store metrics.
	Observations int `json:"observations"`
	Sets         int `json:"sets"`

	// Metadata.
	CollectedAt time.Time `json:"collected_at"`
}

// ResolverStats abstracts the resolver methods needed by the collector.
type ResolverStats interface {
	Stats() pricing.Stats
}

// Collector gathers metrics from the resolver and the store.
type Collector struct {
	resolver ResolverStats
	store    store.Store
}

// NewCollector creates a new metrics collector. The store may be nil when
// running without persistence.
func NewCollector(resolver ResolverStats, st store.Store) *Collector {
	return &Collector{resolver: resolver, store: st}
}

// Collect gathers a snapshot of resolver and store metrics.
func (c *Collector) Collect(ctx context.Context) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		CollectedAt: time.Now().UTC(),
	}

	if c.resolver != nil {
		stats := c.resolver.Stats()
		snap.CacheSize = stats.CacheSize
		snap.HealthScore = stats.HealthScore
		snap.AvgFetchLatencyMs = stats.AverageFetchLatency
	}

	if c.store != nil {
		n, err := c.store.CountObservations(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "monitoring: count observations")
		}
		snap.Observations = n

		sets, err := c.store.ListSets(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "monitoring: list sets")
		}
		snap.Sets = len(sets)
	}

	return snap, nil
}
