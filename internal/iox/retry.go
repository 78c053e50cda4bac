// SPDX-License-Identifier: MPL-2.0

package iox

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultAttempts is the number of tries for a retried operation.
	DefaultAttempts = 3
	// DefaultBackoff is the delay before the first retry; it doubles afterwards.
	DefaultBackoff = 10 * time.Millisecond
)

// Policy bounds the retries of one I/O operation.
type Policy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultPolicy returns the stock retry policy.
func DefaultPolicy() Policy {
	return Policy{Attempts: DefaultAttempts, Backoff: DefaultBackoff}
}

func (p Policy) normalized() Policy {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	return p
}

// RetryWithBackoff retries op up to maxAttempts times with exponential backoff.
// It checks ctx.Err() between retries.
//
// op returns (shouldRetry bool, err error). If shouldRetry is false, err is
// returned immediately (nil on success, non-nil on permanent failure).
// On retry exhaustion, the last error is returned.
func RetryWithBackoff(
	ctx context.Context,
	maxAttempts int,
	baseBackoff time.Duration,
	op func(attempt int) (retry bool, err error),
) error {
	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("retry aborted: %w", err)
			}
			time.Sleep(baseBackoff * time.Duration(1<<(attempt-1)))
		}

		retry, err := op(attempt)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// Do runs fn under p, retrying transient errors. A final error is wrapped in
// *IOFailureError naming op and path.
func Do(ctx context.Context, p Policy, op, path string, fn func() error) error {
	p = p.normalized()
	attempts := 0
	err := RetryWithBackoff(ctx, p.Attempts, p.Backoff, func(int) (bool, error) {
		attempts++
		err := fn()
		return IsTransient(err), err
	})
	if err == nil {
		return nil
	}
	return &IOFailureError{Op: op, Path: path, Attempts: attempts, Err: err}
}
