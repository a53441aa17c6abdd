package retry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// permanentError marks a failure that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do stops immediately instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Config holds the parameters for the retry strategy. The same config is
// shared by the fetcher and the labeler so their retry semantics stay
// identical.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Do executes fn with exponential back-off retry logic. It returns nil on
// the first success, the last error once attempts are exhausted, and stops
// early on context cancellation or a Permanent error.
func (c Config) Do(ctx context.Context, operationName string, fn func() error) error {
	var lastErr error
	delay := c.BaseDelay

	for attempt := 1; attempt <= c.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) {
			return lastErr
		}

		if attempt < c.MaxAttempts {
			log.Printf("[retry] %s failed (attempt %d/%d): %v, retrying in %v",
				operationName, attempt, c.MaxAttempts, lastErr, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, c.MaxAttempts, lastErr)
}
