// Package retry holds the bounded retry policy used around storage calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrAttemptTimeout wraps the error of an attempt that ran past
// Policy.AttemptTimeout. Such attempts are always retried.
var ErrAttemptTimeout = errors.New("attempt timed out")

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// AttemptTimeout caps a single attempt. Zero means the caller's context
	// is the only deadline.
	AttemptTimeout time.Duration
}

// Default is three attempts with short exponential backoff.
func Default() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
		AttemptTimeout: 2 * time.Second,
	}
}

// Do runs op until it succeeds, fails with an error retryable rejects, or
// the attempt budget is spent. It returns the number of attempts made and
// the last error.
func (p Policy) Do(ctx context.Context, retryable func(error) bool, op func(ctx context.Context) error) (int, error) {
	attempts := 0
	operation := func() error {
		attempts++
		attemptCtx, cancel := p.attemptContext(ctx)
		defer cancel()

		err := op(attemptCtx)
		if err == nil {
			return nil
		}
		if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrAttemptTimeout, err)
		}
		if retryable == nil || !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	maxRetries := uint64(0)
	if p.MaxAttempts > 1 {
		maxRetries = uint64(p.MaxAttempts - 1)
	}
	b := backoff.WithContext(backoff.WithMaxRetries(p.backOff(), maxRetries), ctx)
	err := backoff.Retry(operation, b)
	return attempts, err
}

func (p Policy) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.AttemptTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.AttemptTimeout)
}

func (p Policy) backOff() backoff.BackOff {
	if p.InitialBackoff <= 0 {
		return &backoff.ZeroBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	b.MaxInterval = p.InitialBackoff
	if p.MaxBackoff > p.InitialBackoff {
		b.MaxInterval = p.MaxBackoff
	}
	b.MaxElapsedTime = 0
	return b
}
