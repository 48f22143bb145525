package pricing

import "sync"

// Health score adjustments per fetch outcome.
const (
	healthFastSuccess = 5
	healthSlowSuccess = 2
	healthNoPrice     = -2
	healthProviderErr = -10
	healthTimeout     = -15

	// healthBackgroundFail is the extra penalty applied when a fetch that
	// lost the parallel race eventually fails in the background.
	healthBackgroundFail = -5
)

// HealthMonitor tracks upstream reliability as a single 0-100 score shared
// across all cards. It starts at 100 and is adjusted after every fetch
// outcome. Safe for concurrent use.
type HealthMonitor struct {
	mu    sync.Mutex
	score float64
}

// NewHealthMonitor creates a monitor at full health.
func NewHealthMonitor() *HealthMonitor {
	return &HealthMonitor{score: 100}
}

// Adjust adds delta to the score, clamping to [0, 100].
func (h *HealthMonitor) Adjust(delta float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.score += delta
	if h.score > 100 {
		h.score = 100
	}
	if h.score < 0 {
		h.score = 0
	}
}

// Read returns the current score.
func (h *HealthMonitor) Read() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.score
}
