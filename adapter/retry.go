package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultBackoff is the wait before the first retry. Each further retry
// doubles it.
const DefaultBackoff = 500 * time.Millisecond

// ErrPermanent marks an attempt error that must not be retried.
var ErrPermanent = errors.New("permanent failure")

// Permanent wraps err so Retry gives up immediately.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Retry calls attempt up to 1+retries times, backing off exponentially from
// backoff between calls. It stops early when ctx ends or attempt returns an
// error wrapping ErrPermanent.
func Retry(ctx context.Context, retries int, backoff time.Duration, attempt func(context.Context) error) error {
	var lastErr error
	for i := range 1 + retries {
		if i > 0 {
			t := time.NewTimer(backoff << (i - 1))
			select {
			case <-ctx.Done():
				t.Stop()
				return fmt.Errorf("canceled during backoff: %w", ctx.Err())
			case <-t.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("canceled: %w", err)
		}

		lastErr = attempt(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrPermanent) {
			return lastErr
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", 1+retries, lastErr)
}
