// Package retry runs an operation under an explicit retry policy.
package retry

import (
	"context"
	"errors"
	"io"
	"strings"
	"syscall"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
)

// Policy decides how many times to try, how long to wait between tries, and
// which errors are worth another try.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Retryable   func(err error) bool
}

// DefaultPolicy returns 3 attempts with 500ms, 1s waits, retrying only
// connection-reset class failures.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: defaultMaxAttempts,
		Backoff:     Linear(defaultBaseDelay),
		Retryable:   IsConnectionReset,
	}
}

// Linear waits attempt × base after the given attempt (1-based).
func Linear(base time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * base
	}
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// attempts run out. It returns how many attempts were made and the last error.
// Context cancellation between attempts is respected.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) (int, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	retryable := policy.Retryable
	if retryable == nil {
		retryable = IsConnectionReset
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if !retryable(lastErr) || attempt == maxAttempts {
			return attempt, lastErr
		}

		var delay time.Duration
		if policy.Backoff != nil {
			delay = policy.Backoff(attempt)
		}
		if delay <= 0 {
			if err := ctx.Err(); err != nil {
				return attempt, err
			}
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}
	}
	return maxAttempts, lastErr
}

// IsConnectionReset matches failures where the peer dropped the connection
// mid-exchange: resets, aborts, broken pipes and truncated bodies.
func IsConnectionReset(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "connection aborted") ||
		strings.Contains(lower, "broken pipe") ||
		strings.Contains(lower, "econnreset") ||
		strings.Contains(lower, "unexpected eof")
}
