package pricing

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// TimeoutError reports that the upstream did not respond within the fetch
// deadline.
type TimeoutError struct {
	Deadline time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upstream timeout after %s", e.Deadline)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// ProviderError reports that the upstream responded, but with an error
// status or an unparseable payload.
type ProviderError struct {
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream provider error: status %d", e.StatusCode)
	}
	return "upstream provider error: " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsTimeout returns true if err indicates the upstream missed its deadline:
// an explicit TimeoutError, a deadline-exceeded context, or a network-level
// timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
