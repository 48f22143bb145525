package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cardintel/cardintel/pkg/tcgapi"
)

// quickRetry is a test config with near-zero sleeps.
func quickRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func throttled() error {
	return fmt.Errorf("list sets: %w", &tcgapi.StatusError{StatusCode: 429})
}

func TestDoVal_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	sets, err := DoVal(context.Background(), quickRetry(3), func(_ context.Context) ([]tcgapi.Set, error) {
		calls++
		return []tcgapi.Set{{ID: "base1", Name: "Base"}}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if len(sets) != 1 || sets[0].ID != "base1" {
		t.Errorf("unexpected sets: %+v", sets)
	}
}

func TestDoVal_RecoversFromThrottling(t *testing.T) {
	var calls int
	sets, err := DoVal(context.Background(), quickRetry(3), func(_ context.Context) ([]tcgapi.Set, error) {
		calls++
		if calls < 3 {
			return nil, throttled()
		}
		return []tcgapi.Set{{ID: "base1"}, {ID: "base2"}}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if len(sets) != 2 {
		t.Errorf("expected 2 sets, got %d", len(sets))
	}
}

func TestDoVal_ExhaustsRetries(t *testing.T) {
	var calls int
	_, err := DoVal(context.Background(), quickRetry(3), func(_ context.Context) ([]tcgapi.Set, error) {
		calls++
		return nil, fmt.Errorf("list sets: %w", &tcgapi.StatusError{StatusCode: 503})
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	var se *tcgapi.StatusError
	if !errors.As(err, &se) || se.StatusCode != 503 {
		t.Errorf("expected last upstream error to surface, got %v", err)
	}
}

func TestDoVal_PermanentStatus_NoRetry(t *testing.T) {
	var calls int
	_, err := DoVal(context.Background(), quickRetry(3), func(_ context.Context) ([]tcgapi.Set, error) {
		calls++
		return nil, fmt.Errorf("list sets: %w", &tcgapi.StatusError{StatusCode: 404})
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call (no retry for a permanent status), got %d", calls)
	}
}

func TestDoVal_ReturnsZeroOnFailure(t *testing.T) {
	val, err := DoVal(context.Background(), quickRetry(2), func(_ context.Context) (int, error) {
		return 42, throttled()
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if val != 0 {
		t.Errorf("expected zero value on failure, got %d", val)
	}
}

func TestDoVal_ContextCancelledStopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	cfg := RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
		Multiplier:     2.0,
	}

	_, err := DoVal(ctx, cfg, func(_ context.Context) ([]tcgapi.Set, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return nil, throttled()
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls > 3 {
		t.Errorf("expected <= 3 calls after cancel, got %d", calls)
	}
}

func TestDoVal_CustomShouldRetry(t *testing.T) {
	var calls int
	cfg := quickRetry(3)
	cfg.ShouldRetry = func(err error) bool {
		return err.Error() == "retry me"
	}

	_, err := DoVal(context.Background(), cfg, func(_ context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("retry me")
		}
		return "done", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestDoVal_OnRetryCallback(t *testing.T) {
	var retryAttempts []int
	cfg := quickRetry(3)
	cfg.OnRetry = func(attempt int, _ error) {
		retryAttempts = append(retryAttempts, attempt)
	}

	_, _ = DoVal(context.Background(), cfg, func(_ context.Context) ([]tcgapi.Set, error) {
		return nil, throttled()
	})

	if len(retryAttempts) != 2 {
		t.Fatalf("expected 2 OnRetry calls, got %d", len(retryAttempts))
	}
	if retryAttempts[0] != 1 || retryAttempts[1] != 2 {
		t.Errorf("expected attempts [1, 2], got %v", retryAttempts)
	}
}

func TestDo_WrapsDoVal(t *testing.T) {
	var calls int
	err := Do(context.Background(), quickRetry(3), func(_ context.Context) error {
		calls++
		if calls < 2 {
			return throttled()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestDefaultsApplied(t *testing.T) {
	cfg := RetryConfig{}.withDefaults()
	if cfg.MaxAttempts != 4 {
		t.Errorf("expected 4 attempts, got %d", cfg.MaxAttempts)
	}
	if cfg.InitialBackoff != 1*time.Second {
		t.Errorf("expected 1s initial backoff, got %v", cfg.InitialBackoff)
	}
	if cfg.MaxBackoff != 15*time.Second {
		t.Errorf("expected 15s max backoff, got %v", cfg.MaxBackoff)
	}
}

func TestBackoffFor_ExponentialGrowth(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0, // deterministic
	}.withDefaults()

	expected := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}
	for attempt, want := range expected {
		if got := cfg.backoffFor(attempt); got != want {
			t.Errorf("attempt %d: expected %v, got %v", attempt, want, got)
		}
	}
}

func TestBackoffFor_CapsAtMax(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     5 * time.Second,
		Multiplier:     10.0,
		JitterFraction: 0,
	}.withDefaults()

	if delay := cfg.backoffFor(5); delay > 5*time.Second {
		t.Errorf("expected delay capped at 5s, got %v", delay)
	}
}

func TestBackoffFor_WithJitter(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.5,
	}.withDefaults()

	seen := make(map[time.Duration]bool)
	for i := 0; i < 100; i++ {
		d := cfg.backoffFor(0)
		seen[d] = true
		// With 50% jitter on a 1s base the delay stays in [500ms, 1500ms].
		if d < 500*time.Millisecond || d > 1500*time.Millisecond {
			t.Errorf("delay %v outside expected range [500ms, 1500ms]", d)
		}
	}
	if len(seen) < 2 {
		t.Error("expected jitter to produce varying delays")
	}
}
