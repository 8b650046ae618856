// Package ratelimit tracks the Canvas request throttling bucket and paces
// requests when it runs low. It reads the X-Rate-Limit-Remaining and
// X-Request-Cost headers Canvas returns on every response.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyRemaining   = "canvas:rate_limit:remaining"
	RedisKeyRequestCost = "canvas:rate_limit:request_cost"
	RedisKeyLastUpdate  = "canvas:rate_limit:last_update"
)

// Thresholds for rate limit decisions. Canvas starts a fresh bucket at 700.
const (
	// ThresholdCritical applies the long pause when the bucket falls below this value.
	ThresholdCritical = 10.0

	// ThresholdWarning applies a short pause when the bucket falls below this value.
	ThresholdWarning = 100.0

	// ThresholdHealthy indicates normal operation.
	ThresholdHealthy = 300.0
)

// Pauses applied before a request when the bucket is low.
const (
	WarningPause  = 1 * time.Second
	CriticalPause = 5 * time.Second
)

// RateLimitState represents the last observed Canvas throttling bucket.
// This state is shared across all client instances via Redis.
type RateLimitState struct {
	// Remaining is the quota left in the bucket (X-Rate-Limit-Remaining).
	Remaining float64 `json:"remaining"`

	// RequestCost is the cost charged for the last request (X-Request-Cost).
	RequestCost float64 `json:"request_cost"`

	// LastUpdate is the timestamp when this state was last updated.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= ThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalPause returns true if the bucket is nearly empty.
func (s *RateLimitState) NeedsCriticalPause() bool {
	return s.Remaining < ThresholdCritical
}

// NeedsThrottling returns true if requests should be slowed but not paused long.
func (s *RateLimitState) NeedsThrottling() bool {
	return s.Remaining < ThresholdWarning && !s.NeedsCriticalPause()
}

// Pause returns how long to wait before the next request.
func (s *RateLimitState) Pause() time.Duration {
	switch {
	case s.NeedsCriticalPause():
		return CriticalPause
	case s.NeedsThrottling():
		return WarningPause
	default:
		return 0
	}
}

// UpdateHealth updates the IsHealthy field based on current Remaining.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdHealthy
}
