// Package retry is the caller-side retry helper. The engine itself never
// retries; callers that want a second attempt wrap the call in Do.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Config controls Do
type Config struct {
	MaxRetries        int           // at most 1 is honoured
	InitialBackoff    time.Duration // wait before the retry
	MaxBackoff        time.Duration
	BackoffMultiplier float64

	// Retriable decides whether an error warrants the retry. Nil retries
	// everything except context cancellation.
	Retriable func(error) bool
	Logger    *slog.Logger
}

// DefaultConfig returns one retry after 500ms
func DefaultConfig() Config {
	return Config{
		MaxRetries:        1,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Do runs fn, retrying at most once with backoff when the error is retriable
func Do(ctx context.Context, cfg Config, operation string, fn func(context.Context) error) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retries := cfg.MaxRetries
	if retries > 1 {
		retries = 1
	}
	if retries < 0 {
		retries = 0
	}
	retriable := cfg.Retriable
	if retriable == nil {
		retriable = func(err error) bool {
			return !errors.Is(err, context.Canceled)
		}
	}

	backoff := cfg.InitialBackoff
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("operation succeeded after retry", "operation", operation)
			}
			return nil
		}
		lastErr = err

		if !retriable(err) {
			return err
		}
		if attempt == retries {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s failed: context canceled: %w", operation, ctx.Err())
		}

		logger.Warn("operation failed, retrying", "operation", operation, "backoff", backoff, "error", err)
		select {
		case <-time.After(backoff):
			if cfg.BackoffMultiplier > 0 {
				backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
			}
			if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
				backoff = cfg.MaxBackoff
			}
		case <-ctx.Done():
			return fmt.Errorf("%s failed: context canceled during backoff: %w", operation, ctx.Err())
		}
	}

	if retries == 0 {
		return lastErr
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operation, retries+1, lastErr)
}
