package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stock-hub/observability"
)

type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig gives three attempts with 1s and 2s pauses between
// them, matching the pacing free-tier market data APIs tolerate.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:     2,
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     8 * time.Second,
}

func WithRetry(ctx context.Context, config RetryConfig, fn func() error) error {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
			case <-time.After(backoff):
			}

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		// Unknown symbols stay unknown no matter how often we ask
		if errors.Is(err, ErrInvalidPayload) {
			return err
		}

		lastErr = err
		if attempt < config.MaxRetries {
			observability.Warn("Retry attempt failed",
				"attempt", attempt+1,
				"max_retries", config.MaxRetries,
				"error", err)
		}
	}

	return fmt.Errorf("failed after %d retries: %w", config.MaxRetries, lastErr)
}
