package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// sleepRecorder records requested backoff delays without sleeping.
type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func newRetryTestClient(rec *sleepRecorder) *Client {
	return &Client{
		config: Config{Retry: DefaultRetryConfig()},
		logger: zerolog.Nop(),
		sleep:  rec.sleep,
	}
}

func serverError(status int) error {
	return &Error{StatusCode: status, ErrorClass: ErrorClassServer}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", config.MaxAttempts)
	}
	if config.InitialBackoff != 500*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 500ms", config.InitialBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryConfig_Schedule(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
		expected    []time.Duration
	}{
		{
			name:        "default five attempts",
			maxAttempts: 5,
			expected: []time.Duration{
				500 * time.Millisecond,
				1 * time.Second,
				2 * time.Second,
				4 * time.Second,
			},
		},
		{
			name:        "two attempts",
			maxAttempts: 2,
			expected:    []time.Duration{500 * time.Millisecond},
		},
		{
			name:        "single attempt never sleeps",
			maxAttempts: 1,
			expected:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRetryConfig()
			cfg.MaxAttempts = tt.maxAttempts

			got := cfg.Schedule()
			if len(got) != len(tt.expected) {
				t.Fatalf("Schedule() = %v, want %v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("Schedule()[%d] = %v, want %v", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	rec := &sleepRecorder{}
	c := newRetryTestClient(rec)

	callCount := 0
	err := c.retryWithBackoff(context.Background(), 5, func() error {
		callCount++
		return nil
	}, errorClassOf)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
	if len(rec.delays) != 0 {
		t.Errorf("Expected no sleeps, got %v", rec.delays)
	}
}

func TestRetryWithBackoff_SuccessOnAttemptK(t *testing.T) {
	for k := 1; k <= 5; k++ {
		rec := &sleepRecorder{}
		c := newRetryTestClient(rec)

		callCount := 0
		err := c.retryWithBackoff(context.Background(), 5, func() error {
			callCount++
			if callCount < k {
				return serverError(503)
			}
			return nil
		}, errorClassOf)

		if err != nil {
			t.Errorf("k=%d: expected no error, got %v", k, err)
		}
		if callCount != k {
			t.Errorf("k=%d: expected %d calls, got %d", k, k, callCount)
		}
		if len(rec.delays) != k-1 {
			t.Errorf("k=%d: expected %d sleeps, got %d", k, k-1, len(rec.delays))
		}
	}
}

func TestRetryWithBackoff_MaxAttemptsExhausted(t *testing.T) {
	rec := &sleepRecorder{}
	c := newRetryTestClient(rec)

	callCount := 0
	lastErr := serverError(503)
	err := c.retryWithBackoff(context.Background(), 5, func() error {
		callCount++
		return lastErr
	}, errorClassOf)

	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	if !errors.Is(err, lastErr) {
		t.Errorf("Expected last failure to be preserved, got %v", err)
	}
	if StatusCode(err) != 503 {
		t.Errorf("StatusCode = %d, want 503", StatusCode(err))
	}
	if callCount != 5 {
		t.Errorf("Expected 5 calls (MaxAttempts), got %d", callCount)
	}

	want := []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second, 4 * time.Second}
	if len(rec.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", rec.delays, want)
	}
	for i := range want {
		if rec.delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, rec.delays[i], want[i])
		}
	}
}

func TestRetryWithBackoff_ClientErrorNoRetry(t *testing.T) {
	rec := &sleepRecorder{}
	c := newRetryTestClient(rec)

	callCount := 0
	testErr := &Error{StatusCode: 401, ErrorClass: ErrorClassClient}
	err := c.retryWithBackoff(context.Background(), 5, func() error {
		callCount++
		return testErr
	}, errorClassOf)

	if callCount != 1 {
		t.Errorf("Expected 1 call (no retry for client errors), got %d", callCount)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("Should not return ErrRetryExhausted for client errors")
	}
	if err != testErr {
		t.Errorf("Expected original error, got %v", err)
	}
}

func TestRetryWithBackoff_NetworkErrorNoRetry(t *testing.T) {
	rec := &sleepRecorder{}
	c := newRetryTestClient(rec)

	callCount := 0
	err := c.retryWithBackoff(context.Background(), 5, func() error {
		callCount++
		return &Error{ErrorClass: ErrorClassNetwork, Err: errors.New("connection refused")}
	}, errorClassOf)

	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call (no retry without a response), got %d", callCount)
	}
}

func TestRetryWithBackoff_UnclassifiedErrorNoRetry(t *testing.T) {
	rec := &sleepRecorder{}
	c := newRetryTestClient(rec)

	callCount := 0
	_ = c.retryWithBackoff(context.Background(), 5, func() error {
		callCount++
		return errors.New("create request: bad url")
	}, errorClassOf)

	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &sleepRecorder{}
	c := newRetryTestClient(rec)

	callCount := 0
	err := c.retryWithBackoff(ctx, 5, func() error {
		callCount++
		if callCount == 1 {
			cancel()
		}
		return serverError(500)
	}, errorClassOf)

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call before cancellation, got %d", callCount)
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleepContext() = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleepContext(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("sleepContext(cancelled) = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("sleepContext should return promptly when cancelled")
	}
}
