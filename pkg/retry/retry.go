package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "mediagrab/pkg/errors"
	"mediagrab/pkg/logger"
)

// Operation is a function that may need retrying
type Operation func() error

// Config holds retry behavior
type Config struct {
	// MaxAttempts caps the number of attempts (0 means unlimited)
	MaxAttempts int
	// Backoff computes the delay before each retry
	Backoff BackoffStrategy
	// RetryIf decides whether an error is worth retrying
	RetryIf func(error) bool
	// Context cancels the wait between attempts
	Context context.Context
	Logger  logger.Logger
}

// DefaultConfig returns retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.GetLogger(),
	}
}

// DefaultRetryIf retries typed retryable errors and unknown failures, but
// never context cancellation.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	var typed *errs.Error
	if errors.As(err, &typed) {
		return errs.IsRetryable(typed.Type)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// Do executes an operation with retry logic
func Do(op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		if cfg.MaxAttempts > 0 && attempt > cfg.MaxAttempts {
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
		}

		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if !cfg.RetryIf(err) {
			return err
		}

		delay := cfg.Backoff.NextDelay(attempt)
		if cfg.Logger != nil {
			cfg.Logger.WarnWithFields("retrying operation", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
				"delay":   delay,
			})
		}
		if err := wait(cfg.Context, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

func wait(ctx context.Context, delay time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
