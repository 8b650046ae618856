package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	canvasRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	canvasRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "canvas_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 4, 8, 16, 30},
	}, []string{"error_class"})

	canvasRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the delay after the first failed attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps a single delay.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration: five attempts
// spaced 0.5s, 1s, 2s and 4s apart.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// newBackOff returns a deterministic exponential schedule for cfg.
func (cfg RetryConfig) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialBackoff
	b.Multiplier = cfg.BackoffMultiplier
	b.RandomizationFactor = 0
	b.MaxInterval = cfg.MaxBackoff
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Schedule returns the delays slept between attempts when every attempt fails.
func (cfg RetryConfig) Schedule() []time.Duration {
	if cfg.MaxAttempts <= 1 {
		return nil
	}
	b := cfg.newBackOff()
	delays := make([]time.Duration, 0, cfg.MaxAttempts-1)
	for i := 1; i < cfg.MaxAttempts; i++ {
		delays = append(delays, b.NextBackOff())
	}
	return delays
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryWithBackoff runs fn until it succeeds, fails permanently, or uses up
// maxAttempts. Only errors that classify as retriable are attempted again.
// On exhaustion the last failure is returned wrapped with ErrRetryExhausted.
func (c *Client) retryWithBackoff(ctx context.Context, maxAttempts int, fn func() error, classify func(error) ErrorClass) error {
	cfg := c.config.Retry
	cfg.MaxAttempts = maxAttempts
	schedule := cfg.newBackOff()

	var lastErr error
	var errorClass ErrorClass

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				c.logger.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		errorClass = classify(err)

		if !shouldRetry(errorClass) {
			return lastErr
		}

		// No sleep after the final attempt
		if attempt >= maxAttempts {
			break
		}

		delay := schedule.NextBackOff()
		canvasRetriesTotal.WithLabelValues(string(errorClass)).Inc()
		canvasRetryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(delay.Seconds())

		c.logger.Debug().
			Err(err).
			Int("attempt", attempt).
			Int("status_code", StatusCode(err)).
			Int("retries_remaining", maxAttempts-attempt).
			Dur("backoff", delay).
			Msg("Retrying request after backoff")

		if err := c.sleep(ctx, delay); err != nil {
			c.logger.Warn().
				Str("error_class", string(errorClass)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %w", ErrContextCancelled, err)
		}
	}

	canvasRetryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
	c.logger.Warn().
		Str("error_class", string(errorClass)).
		Int("max_attempts", maxAttempts).
		Int("status_code", StatusCode(lastErr)).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, maxAttempts, lastErr)
}

// errorClassOf extracts the ErrorClass from a request failure.
func errorClassOf(err error) ErrorClass {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	return ""
}
