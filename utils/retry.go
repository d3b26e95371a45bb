package utils

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig holds the parameters for the retry strategy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *Logger

	// Retryable reports whether an error is worth another attempt.
	// A nil Retryable retries every error.
	Retryable func(error) bool
}

// Do executes fn with exponential back-off, stopping early when ctx is done
// or the error is not retryable.
func (r *RetryConfig) Do(ctx context.Context, operationName string, fn func(ctx context.Context) error) error {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := r.BaseDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if r.Retryable != nil && !r.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		if r.Logger != nil {
			r.Logger.Warn("[retry] %s failed (attempt %d/%d): %v, retrying in %v",
				operationName, attempt, attempts, lastErr, delay)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", operationName, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operationName, attempts, lastErr)
}
