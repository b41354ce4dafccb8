// Package retry implements the bounded retry rule applied to every store write.
package retry

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/bulkcase/internal/ports/secondary"
)

// DefaultMaxAttempts is the number of submit attempts made per case.
const DefaultMaxAttempts = 3

// Policy bounds how often a store operation is attempted.
// A zero Backoff retries immediately after re-fetching.
type Policy struct {
	MaxAttempts int
	// Backoff is multiplied by the attempt number before each retry.
	Backoff time.Duration
}

// DefaultPolicy returns three attempts with no delay.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts}
}

// Validate checks the policy is usable.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.Backoff < 0 {
		return fmt.Errorf("backoff must not be negative, got %s", p.Backoff)
	}
	return nil
}

// IsRetryable reports whether err is a concurrent-modification conflict or a
// transient store fault.
func IsRetryable(err error) bool {
	return errors.Is(err, secondary.ErrConflict) || errors.Is(err, secondary.ErrTransient)
}

// Do calls fn until it succeeds, returns a non-retryable error, or the attempt
// budget is spent. fn receives the 1-based attempt number. Do returns the
// number of attempts made and the last error.
func (p Policy) Do(fn func(attempt int) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn(attempt)
		if err == nil || !IsRetryable(err) {
			return attempt, err
		}
		if attempt < maxAttempts && p.Backoff > 0 {
			time.Sleep(p.Backoff * time.Duration(attempt))
		}
	}
	return maxAttempts, err
}
