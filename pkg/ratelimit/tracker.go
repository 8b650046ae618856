package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	canvasRateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "canvas_rate_limit_remaining",
		Help: "Quota remaining in the Canvas throttling bucket",
	})

	canvasRequestCost = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "canvas_request_cost",
		Help:    "Cost Canvas charged per request",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 50},
	})

	canvasRateLimitPausesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_rate_limit_pauses_total",
		Help: "Total number of requests delayed by the rate limit tracker",
	}, []string{"level"})
)

func init() {
	for _, level := range []string{"warning", "critical"} {
		canvasRateLimitPausesTotal.WithLabelValues(level)
	}
}

// StaleAfter is how long observed state is trusted. Canvas refills the
// bucket continuously, so old readings are ignored.
const StaleAfter = 30 * time.Second

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Tracker monitors the Canvas throttling bucket and paces requests.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
	sleep  SleepFunc
}

// NewTracker creates a new rate limit tracker. A nil sleep uses a
// context-aware timer.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger, sleep SleepFunc) *Tracker {
	if sleep == nil {
		sleep = func(ctx context.Context, d time.Duration) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
				return nil
			}
		}
	}
	return &Tracker{
		redis:  redisClient,
		logger: logger,
		sleep:  sleep,
	}
}

// GetState retrieves the current rate limit state from Redis.
// Returns a default healthy state if no data exists in Redis.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	remaining, err := t.redis.Get(ctx, RedisKeyRemaining).Float64()
	if err == redis.Nil {
		t.logger.Debug().Msg("No rate limit state in Redis, returning default healthy state")
		return &RateLimitState{
			Remaining:  700,
			LastUpdate: time.Now(),
			IsHealthy:  true,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get remaining: %w", err)
	}

	cost, err := t.redis.Get(ctx, RedisKeyRequestCost).Float64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get request cost: %w", err)
	}

	lastUpdateStr, err := t.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	var lastUpdate time.Time
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state := &RateLimitState{
		Remaining:   remaining,
		RequestCost: cost,
		LastUpdate:  lastUpdate,
	}
	state.UpdateHealth()

	return state, nil
}

// ParseHeaders extracts rate limit state from Canvas response headers.
// ok is false when the response carries no rate limit information.
func ParseHeaders(headers http.Header, now time.Time) (state *RateLimitState, ok bool, err error) {
	remainStr := headers.Get("X-Rate-Limit-Remaining")
	if remainStr == "" {
		return nil, false, nil
	}

	remain, err := strconv.ParseFloat(remainStr, 64)
	if err != nil {
		return nil, false, fmt.Errorf("parse X-Rate-Limit-Remaining header: %w", err)
	}

	var cost float64
	if costStr := headers.Get("X-Request-Cost"); costStr != "" {
		cost, err = strconv.ParseFloat(costStr, 64)
		if err != nil {
			return nil, false, fmt.Errorf("parse X-Request-Cost header: %w", err)
		}
	}

	state = &RateLimitState{
		Remaining:   remain,
		RequestCost: cost,
		LastUpdate:  now,
	}
	state.UpdateHealth()

	return state, true, nil
}

// UpdateFromHeaders parses Canvas rate limit headers and updates Redis state.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	state, ok, err := ParseHeaders(headers, time.Now())
	if err != nil || !ok {
		return err
	}

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyRemaining, state.Remaining, 0)
	pipe.Set(ctx, RedisKeyRequestCost, state.RequestCost, 0)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	canvasRateLimitRemaining.Set(state.Remaining)
	canvasRequestCost.Observe(state.RequestCost)

	switch {
	case state.NeedsCriticalPause():
		t.logger.Error().
			Float64("remaining", state.Remaining).
			Msg("Canvas rate limit CRITICAL - requests will be paused")
	case state.NeedsThrottling():
		t.logger.Warn().
			Float64("remaining", state.Remaining).
			Msg("Canvas rate limit WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Float64("remaining", state.Remaining).
			Float64("request_cost", state.RequestCost).
			Bool("is_healthy", state.IsHealthy).
			Msg("Canvas rate limit state updated")
	}

	return nil
}

// Wait pauses before a request when the bucket is low. Redis failures are
// logged and the request proceeds; only context errors are returned.
func (t *Tracker) Wait(ctx context.Context) error {
	state, err := t.GetState(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Rate limit state unavailable, not throttling")
		return nil
	}

	if state.IsStale(StaleAfter) {
		return nil
	}

	pause := state.Pause()
	if pause == 0 {
		return nil
	}

	level := "warning"
	if state.NeedsCriticalPause() {
		level = "critical"
	}
	canvasRateLimitPausesTotal.WithLabelValues(level).Inc()

	t.logger.Warn().
		Float64("remaining", state.Remaining).
		Dur("pause", pause).
		Str("level", level).
		Msg("Canvas rate limit low - pausing request")

	return t.sleep(ctx, pause)
}
