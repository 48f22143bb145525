package pricing

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ExecutorConfig controls fetch behavior.
type ExecutorConfig struct {
	// Timeout is the upstream deadline for a single fetch. Default: 5s.
	Timeout time.Duration

	// FastThreshold separates fast from slow successes for health
	// accounting. Default: 2s.
	FastThreshold time.Duration

	// ConversionRate converts the provider's USD prices into GBP.
	// Default: 0.79.
	ConversionRate float64

	// SourceName labels entries produced by this executor.
	// Default: "Pokemon TCG API".
	SourceName string
}

// DefaultExecutorConfig returns the production fetch settings.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		Timeout:        5 * time.Second,
		FastThreshold:  2 * time.Second,
		ConversionRate: 0.79,
		SourceName:     "Pokemon TCG API",
	}
}

func (cfg ExecutorConfig) withDefaults() ExecutorConfig {
	def := DefaultExecutorConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.FastThreshold <= 0 {
		cfg.FastThreshold = def.FastThreshold
	}
	if cfg.ConversionRate <= 0 {
		cfg.ConversionRate = def.ConversionRate
	}
	if cfg.SourceName == "" {
		cfg.SourceName = def.SourceName
	}
	return cfg
}

// Executor performs a single upstream price fetch with a deadline, picks a
// price among the returned variants, and reports the outcome to the health
// monitor.
type Executor struct {
	provider Provider
	health   *HealthMonitor
	cfg      ExecutorConfig
}

// NewExecutor creates a fetch executor.
func NewExecutor(provider Provider, health *HealthMonitor, cfg ExecutorConfig) *Executor {
	return &Executor{
		provider: provider,
		health:   health,
		cfg:      cfg.withDefaults(),
	}
}

// Fetch looks up the price for one card. Outcomes:
//   - a usable price: returns the entry, health +5 (fast) or +2 (slow);
//   - no price in the payload: returns (nil, nil), health -2;
//   - upstream deadline missed: returns a TimeoutError, health -15;
//   - any other upstream failure: returns a ProviderError, health -10.
func (e *Executor) Fetch(ctx context.Context, cardID, cardName string) (*PricedEntry, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	variants, err := e.provider.CardPrices(ctx, cardName)
	elapsed := time.Since(start)

	if err != nil {
		if IsTimeout(err) {
			e.health.Adjust(healthTimeout)
			zap.L().Warn("price fetch timed out",
				zap.String("card", cardName),
				zap.Duration("deadline", e.cfg.Timeout),
			)
			return nil, &TimeoutError{Deadline: e.cfg.Timeout, Err: err}
		}

		e.health.Adjust(healthProviderErr)
		zap.L().Warn("price fetch failed",
			zap.String("card", cardName),
			zap.Error(err),
		)
		var pe *ProviderError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, &ProviderError{Err: err}
	}

	price, refURL := pickVariant(variants)
	if price == nil {
		// The call itself succeeded; a card without prices is a valid
		// empty outcome, not a failure.
		e.health.Adjust(healthNoPrice)
		return nil, nil
	}

	if elapsed < e.cfg.FastThreshold {
		e.health.Adjust(healthFastSuccess)
	} else {
		e.health.Adjust(healthSlowSuccess)
	}

	entry := &PricedEntry{
		Price:        *price * e.cfg.ConversionRate,
		Source:       e.cfg.SourceName,
		ReferenceURL: refURL,
		ObservedAt:   start,
		Confidence:   ConfidenceHigh,
	}
	zap.L().Debug("price fetched",
		zap.String("card", cardName),
		zap.Float64("price", entry.Price),
		zap.Duration("elapsed", elapsed),
	)
	return entry, nil
}

// pickVariant selects the first available market price in preference order:
// normal, then holofoil, then reverse holofoil.
func pickVariant(v *PriceVariants) (*float64, string) {
	if v == nil {
		return nil, ""
	}
	for _, p := range []*float64{v.Normal, v.Holofoil, v.ReverseHolofoil} {
		if p != nil {
			return p, v.ReferenceURL
		}
	}
	return nil, ""
}
