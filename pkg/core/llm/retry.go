package llm

import (
	"context"
	"fmt"
	"time"
)

// WithRetry runs fn with bounded exponential backoff. Every collaborator call
// in the pipeline goes through this before its failure path degrades the
// dependent feature. Context cancellation aborts the remaining attempts.
func WithRetry(ctx context.Context, attempts int, initialBackoff time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := initialBackoff
	var lastErr error

	for i := 0; i < attempts; i++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
