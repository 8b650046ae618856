// Package metrics documents the Prometheus metrics exported by the Canvas
// client. Metrics are defined next to the code that records them (client,
// pagination, classify, ratelimit) and registered via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the Canvas client.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads back what Registry collected.
var Gatherer = prometheus.DefaultGatherer

// WriteTextfile writes every gathered metric to path in the Prometheus text
// format, for pickup by the node exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Gatherer)
}

// Names lists every metric family the client packages register.
var Names = []string{
	"canvas_requests_total",
	"canvas_request_duration_seconds",
	"canvas_errors_total",
	"canvas_retries_total",
	"canvas_retry_backoff_seconds",
	"canvas_retry_exhausted_total",
	"canvas_pages_fetched_total",
	"canvas_classified_errors_total",
	"canvas_rate_limit_remaining",
	"canvas_request_cost",
	"canvas_rate_limit_pauses_total",
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - canvas_requests_total{method, status} (Counter): requests by method and HTTP status
//   - canvas_request_duration_seconds{method} (Histogram): duration of a single attempt
//   - canvas_errors_total{class} (Counter): failures by class (client, server, network)
//
// Retry Metrics (pkg/client):
//   - canvas_retries_total{error_class} (Counter): retry attempts
//   - canvas_retry_backoff_seconds{error_class} (Histogram): backoff slept before a retry
//   - canvas_retry_exhausted_total{error_class} (Counter): requests that used every attempt
//
// Pagination Metrics (pkg/pagination):
//   - canvas_pages_fetched_total (Counter): list pages decoded
//
// Classification Metrics (pkg/classify):
//   - canvas_classified_errors_total{kind} (Counter): typed errors produced
//
// Rate Limit Metrics (pkg/ratelimit):
//   - canvas_rate_limit_remaining (Gauge): last X-Rate-Limit-Remaining value
//   - canvas_request_cost (Histogram): X-Request-Cost per response
//   - canvas_rate_limit_pauses_total{level} (Counter): requests delayed (warning, critical)
//
// Example Prometheus Queries:
//
//   # Server error retry rate
//   rate(canvas_retries_total{error_class="server"}[5m])
//
//   # Authentication failures
//   increase(canvas_classified_errors_total{kind="authentication_failed"}[1h])
//
//   # P95 attempt latency
//   histogram_quantile(0.95, rate(canvas_request_duration_seconds_bucket[5m]))
