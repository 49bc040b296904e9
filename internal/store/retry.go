package store

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/livetemplate/accordion/internal/logging"
)

// RetryConfig configures retry behavior for idempotent reads
type RetryConfig struct {
	MaxRetries int           // Maximum number of retry attempts (0 = attempt once)
	BaseDelay  time.Duration // Initial delay between retries
	MaxDelay   time.Duration // Maximum delay between retries
	Multiplier float64       // Delay multiplier for exponential backoff
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 0,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
	}
}

// WithRetry runs fn until it succeeds, fails with a non-retryable error, or
// the attempts are exhausted.
func WithRetry[T any](ctx context.Context, store, op string, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	log := logging.Named("retry").With(zap.String("store", store), zap.String("op", op))

	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				log.Info("succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return result, nil
		}

		lastErr = err

		if !shouldRetry(err) {
			return zero, err
		}

		if attempt < cfg.MaxRetries {
			delay := calculateDelay(attempt, cfg)
			log.Warn("attempt failed, retrying",
				zap.Int("attempt", attempt+1), zap.Duration("delay", delay), zap.Error(err))

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			}
		}
	}

	if cfg.MaxRetries > 0 {
		log.Warn("all attempts failed", zap.Int("attempts", cfg.MaxRetries+1))
	}

	var storeErr *StoreError
	if errors.As(lastErr, &storeErr) {
		storeErr.Retryable = false
		return zero, lastErr
	}

	return zero, &StoreError{
		Store:     store,
		Operation: op,
		Err:       lastErr,
		Retryable: false,
	}
}

// shouldRetry determines if an error should be retried
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var circuitErr *CircuitOpenError
	if errors.As(err, &circuitErr) {
		return false
	}

	switch Classify(err) {
	case KindNotFound, KindConflict, KindValidation:
		return false
	}

	return isRetryableError(err)
}

// calculateDelay computes exponential backoff with jitter
func calculateDelay(attempt int, cfg RetryConfig) time.Duration {
	multiplier := cfg.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	delay := float64(cfg.BaseDelay) * math.Pow(multiplier, float64(attempt))

	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	// 80%-120% of the delay so concurrent widgets do not retry in lockstep
	jitter := 0.8 + rand.Float64()*0.4
	delay *= jitter

	return time.Duration(delay)
}
