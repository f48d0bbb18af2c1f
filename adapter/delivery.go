package adapter

import (
	"context"
	"fmt"
	"time"
)

// DefaultBackoff is the delay before the first retry. Later retries double it.
const DefaultBackoff = 500 * time.Millisecond

// Delivery runs one send function until it succeeds or runs out of attempts.
type Delivery struct {
	// Attempts is the total number of sends, at least one.
	Attempts int
	// Backoff is the delay before the first retry (default DefaultBackoff).
	Backoff time.Duration
	// Permanent reports errors that no later attempt can fix.
	Permanent func(error) bool
}

// Run calls send until it returns nil, a permanent error, or the attempts
// are spent. Cancellation of ctx stops it between attempts.
func (d Delivery) Run(ctx context.Context, send func(context.Context) error) error {
	attempts := max(d.Attempts, 1)
	backoff := d.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}

	var lastErr error
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context canceled: %w", err)
		}
		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff << (i - 1)):
			}
		}

		lastErr = send(ctx)
		if lastErr == nil {
			return nil
		}
		if d.Permanent != nil && d.Permanent(lastErr) {
			return fmt.Errorf("non-retriable error: %w", lastErr)
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
