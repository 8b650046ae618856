// Package client provides the core Canvas HTTP request engine with bearer
// authentication, retry on transient server failures and rate limit tracking.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/redkyn/canvas-client/pkg/ratelimit"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for Canvas client operations.
var (
	canvasRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_requests_total",
		Help: "Total Canvas requests by method and status",
	}, []string{"method", "status"})

	canvasRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "canvas_request_duration_seconds",
		Help:    "Canvas request duration in seconds by method",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	canvasErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_errors_total",
		Help: "Total Canvas errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents failures where no response was received.
	ErrorClassNetwork ErrorClass = "network"
)

// Request describes one call against the Canvas API.
type Request struct {
	// Method is http.MethodGet for reads or http.MethodPut for updates.
	Method string

	// Path is resolved against the client's base URL (e.g. "/api/v1/courses").
	Path string

	// Params are encoded into the query string. List-valued Canvas
	// parameters use the "name[]" form with one value per entry.
	Params url.Values

	// Body is JSON encoded when non-nil.
	Body any

	// MaxAttempts overrides Config.Retry.MaxAttempts when > 0.
	MaxAttempts int
}

// Page is one decoded response together with its pagination token.
type Page struct {
	// Body is the raw JSON document returned by Canvas.
	Body json.RawMessage

	// Link is the raw Link response header, or "" when absent.
	Link string

	StatusCode int
}

// Client is the Canvas request engine.
type Client struct {
	httpClient  *http.Client
	endpoint    Endpoint
	rateLimiter *ratelimit.Tracker
	config      Config
	logger      zerolog.Logger
	sleep       SleepFunc
}

// Config holds the client configuration.
type Config struct {
	// Token is the Canvas API access token.
	Token string

	// BaseURL is the Canvas website root. A bare host or http:// URL is
	// upgraded to https.
	BaseURL string

	// Redis enables shared rate limit tracking when set (optional).
	Redis *redis.Client

	// Timeout for a single HTTP attempt.
	Timeout time.Duration

	// Retry controls backoff for 5xx responses.
	Retry RetryConfig

	// Logger overrides the default component logger (optional).
	Logger *zerolog.Logger

	// Sleep replaces the backoff sleep (optional, for tests).
	Sleep SleepFunc
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(token, baseURL string) Config {
	return Config{
		Token:   token,
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
		Retry:   DefaultRetryConfig(),
	}
}

// New creates a new Canvas client.
func New(cfg Config) (*Client, error) {
	endpoint, err := NewEndpoint(cfg.BaseURL, cfg.Token)
	if err != nil {
		return nil, err
	}

	if cfg.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("max_attempts must be >= 1 (got %d)", cfg.Retry.MaxAttempts)
	}

	if cfg.Retry.BackoffMultiplier < 1 {
		return nil, fmt.Errorf("backoff_multiplier must be >= 1 (got %v)", cfg.Retry.BackoffMultiplier)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	defaults := DefaultRetryConfig()
	if cfg.Retry.InitialBackoff <= 0 {
		cfg.Retry.InitialBackoff = defaults.InitialBackoff
	}
	if cfg.Retry.MaxBackoff <= 0 {
		cfg.Retry.MaxBackoff = defaults.MaxBackoff
	}

	logger := log.With().Str("component", "canvas-client").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var rateLimiter *ratelimit.Tracker
	if cfg.Redis != nil {
		rateLimiter = ratelimit.NewTracker(cfg.Redis, logger, ratelimit.SleepFunc(sleep))
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		endpoint:    endpoint,
		rateLimiter: rateLimiter,
		config:      cfg,
		logger:      logger,
		sleep:       sleep,
	}, nil
}

// Execute performs a request, retrying 5xx responses with exponential backoff.
// Any other failure is returned immediately.
func (c *Client) Execute(ctx context.Context, r Request) (*Page, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	maxAttempts := r.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = c.config.Retry.MaxAttempts
	}

	target, err := c.endpoint.Resolve(r.Path, r.Params)
	if err != nil {
		return nil, err
	}

	var body []byte
	if r.Body != nil {
		body, err = json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", r.Path).
		Msg("Executing Canvas request")

	var page *Page
	err = c.retryWithBackoff(ctx, maxAttempts, func() error {
		p, sendErr := c.send(ctx, method, target, body)
		if sendErr != nil {
			return sendErr
		}
		page = p
		return nil
	}, errorClassOf)
	if err != nil {
		return nil, err
	}

	return page, nil
}

// send performs exactly one HTTP attempt.
func (c *Client) send(ctx context.Context, method, target string, body []byte) (*Page, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrContextCancelled, err)
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.endpoint.Apply(req.Header)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	canvasRequestDuration.WithLabelValues(method).Observe(time.Since(startTime).Seconds())

	if err != nil {
		c.logger.Error().Err(err).Str("method", method).Msg("HTTP request failed")
		canvasErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		canvasRequestsTotal.WithLabelValues(method, "network_error").Inc()
		return nil, &Error{
			Method:     method,
			URL:        target,
			ErrorClass: ErrorClassNetwork,
			Err:        err,
		}
	}
	defer resp.Body.Close()

	if c.rateLimiter != nil {
		if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		canvasErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &Error{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			ErrorClass: ErrorClassNetwork,
			Err:        fmt.Errorf("read response body: %w", err),
		}
	}

	canvasRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		errClass := classifyStatus(resp.StatusCode)
		canvasErrorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Warn().
			Str("method", method).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Canvas request error")

		return nil, &Error{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       truncateBody(data),
			ErrorClass: errClass,
		}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("null")
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s %s", ErrInvalidJSON, method, target)
	}

	return &Page{
		Body:       json.RawMessage(data),
		Link:       resp.Header.Get("Link"),
		StatusCode: resp.StatusCode,
	}, nil
}

// classifyStatus categorizes an HTTP error status for observability and retry.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 500:
		return ErrorClassServer
	case status >= 400:
		return ErrorClassClient
	default:
		return ""
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (*Page, error) {
	return c.Execute(ctx, Request{Method: http.MethodGet, Path: path, Params: params})
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, params url.Values, body any) (*Page, error) {
	return c.Execute(ctx, Request{Method: http.MethodPut, Path: path, Params: params, Body: body})
}

// BaseURL returns the normalized Canvas origin.
func (c *Client) BaseURL() string {
	return c.endpoint.BaseURL()
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// RateLimiter returns the rate limit tracker, or nil when Redis is not configured.
func (c *Client) RateLimiter() *ratelimit.Tracker {
	return c.rateLimiter
}
