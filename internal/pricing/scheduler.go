package pricing

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultRefreshJitter is the upper bound on the random delay before a
// background refresh fires, spreading load when many refreshes are
// scheduled at once.
const DefaultRefreshJitter = 5 * time.Second

// Scheduler fires delayed background refresh fetches that keep the cache
// warm without blocking any caller. Refresh failures are swallowed, and
// concurrent schedules for the same card are not de-duplicated.
type Scheduler struct {
	exec      *Executor
	cache     *Cache
	maxJitter time.Duration
	observer  func(cardID string, entry PricedEntry)

	wg sync.WaitGroup
}

// NewScheduler creates a background refresh scheduler. A maxJitter of zero
// uses the default; pass a negative value to disable the delay (tests).
func NewScheduler(exec *Executor, cache *Cache, maxJitter time.Duration) *Scheduler {
	if maxJitter == 0 {
		maxJitter = DefaultRefreshJitter
	}
	return &Scheduler{exec: exec, cache: cache, maxJitter: maxJitter}
}

// ScheduleRefresh queues one refresh fetch for the card after a random
// delay in [0, maxJitter). The fetch runs detached from any caller.
func (s *Scheduler) ScheduleRefresh(cardID, cardName string) {
	var delay time.Duration
	if s.maxJitter > 0 {
		delay = rand.N(s.maxJitter)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if delay > 0 {
			time.Sleep(delay)
		}

		entry, err := s.exec.Fetch(context.Background(), cardID, cardName)
		if err != nil || entry == nil {
			// Background refreshes never surface errors; the executor
			// already recorded the health impact.
			return
		}
		s.cache.Put(cardID, *entry, true)
		if s.observer != nil {
			s.observer(cardID, *entry)
		}
		zap.L().Debug("background refresh complete", zap.String("card", cardName))
	}()
}

// Wait blocks until all scheduled refreshes have finished. Used on
// shutdown and in tests.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
