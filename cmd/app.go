package main

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cardintel/cardintel/internal/model"
	"github.com/cardintel/cardintel/internal/monitoring"
	"github.com/cardintel/cardintel/internal/pricing"
	"github.com/cardintel/cardintel/internal/search"
	"github.com/cardintel/cardintel/internal/store"
	"github.com/cardintel/cardintel/pkg/tcgapi"
)

// appEnv bundles the wired application components.
type appEnv struct {
	Store     store.Store
	Client    tcgapi.Client
	Resolver  *pricing.Resolver
	Index     *search.Index
	Collector *monitoring.Collector

	// cardNames maps card id to display name for history rows.
	mu        sync.RWMutex
	cardNames map[string]string
}

// initApp wires the store, API client, resolver, and search index. The
// mode selects which config validation applies.
func initApp(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := store.New(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	client := tcgapi.NewClient(cfg.TCG.Key,
		tcgapi.WithBaseURL(cfg.TCG.BaseURL),
		tcgapi.WithRateLimit(cfg.TCG.RateLimit),
	)

	env := &appEnv{
		Store:     st,
		Client:    client,
		Index:     search.NewIndex(),
		cardNames: map[string]string{},
	}

	cache := pricing.NewCache().
		WithMaxAge(time.Duration(cfg.Pricing.CacheTTLHours) * time.Hour)
	health := pricing.NewHealthMonitor()
	exec := pricing.NewExecutor(pricing.NewTCGProvider(client), health, pricing.ExecutorConfig{
		Timeout:        time.Duration(cfg.Pricing.FetchTimeoutSecs) * time.Second,
		ConversionRate: cfg.Pricing.USDToGBP,
	})
	env.Resolver = pricing.NewResolver(cache, health, exec, pricing.ResolverConfig{
		RaceTimeout:   time.Duration(cfg.Pricing.RaceTimeoutMillis) * time.Millisecond,
		RefreshJitter: time.Duration(cfg.Pricing.RefreshJitterSecs) * time.Second,
		Observer:      env.recordObservation,
	})
	env.Collector = monitoring.NewCollector(env.Resolver, st)

	if err := env.loadDictionary(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	return env, nil
}

// loadDictionary seeds the search index and the set table from the bundled
// catalog.
func (env *appEnv) loadDictionary(ctx context.Context) error {
	dict, err := search.LoadDictionary()
	if err != nil {
		return err
	}

	env.Index.Load(dict.Cards)
	env.mu.Lock()
	for _, c := range dict.Cards {
		env.cardNames[c.ID] = c.Name
	}
	env.mu.Unlock()

	if _, err := env.Store.UpsertSets(ctx, dict.Sets); err != nil {
		return eris.Wrap(err, "seed set dictionary")
	}

	zap.L().Info("dictionary loaded",
		zap.Int("cards", len(dict.Cards)),
		zap.Int("sets", len(dict.Sets)),
	)
	return nil
}

// recordObservation persists one resolved price as a history row. Failures
// are logged, never propagated: persistence must not break resolution.
func (env *appEnv) recordObservation(cardID string, entry pricing.PricedEntry) {
	env.mu.RLock()
	name := env.cardNames[cardID]
	env.mu.RUnlock()
	if name == "" {
		name = cardID
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	obs := model.PriceObservation{
		CardID:       cardID,
		CardName:     name,
		Price:        entry.Price,
		Currency:     "GBP",
		Source:       entry.Source,
		Confidence:   string(entry.Confidence),
		ReferenceURL: entry.ReferenceURL,
		ObservedAt:   entry.ObservedAt,
	}
	if err := env.Store.SavePriceObservation(ctx, obs); err != nil {
		zap.L().Warn("persist price observation failed",
			zap.String("card", cardID),
			zap.Error(err),
		)
	}
}

// Close drains in-flight background refreshes and closes the store.
func (env *appEnv) Close() {
	env.Resolver.Drain()
	if err := env.Store.Close(); err != nil {
		zap.L().Warn("close store failed", zap.Error(err))
	}
}
