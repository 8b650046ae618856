// Package testutil provides testing utilities for the Canvas client.
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock Canvas endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is one request received by the mock server.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   string
}

// MockCanvas is a configurable mock Canvas server for testing. It serves
// TLS so clients keep their https base URL.
type MockCanvas struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	requests []RecordedRequest
}

// NewMockCanvas creates a new mock Canvas server.
func NewMockCanvas() *MockCanvas {
	mock := &MockCanvas{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   string(body),
		})
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errors":[{"message":"The specified resource does not exist."}]}`))
	}))

	return mock
}

// URL returns the mock server URL (https://127.0.0.1:port).
func (m *MockCanvas) URL() string {
	return m.server.URL
}

// Client returns an HTTP client that trusts the mock server certificate.
func (m *MockCanvas) Client() *http.Client {
	return m.server.Client()
}

// Close shuts down the mock server.
func (m *MockCanvas) Close() {
	m.server.Close()
}

// Reset clears recorded requests.
func (m *MockCanvas) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCanvas) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// Requests returns a copy of every recorded request in arrival order.
func (m *MockCanvas) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCanvas) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockCanvas) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// SetSequence answers successive requests to path with responses in order.
// The last response repeats once the sequence is used up.
func (m *MockCanvas) SetSequence(path string, responses ...MockResponse) {
	var mu sync.Mutex
	next := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[next]
		if next < len(responses)-1 {
			next++
		}
		mu.Unlock()
		writeResponse(w, resp)
	})
}

// SetPages serves pages (JSON arrays) from path selected by the "page"
// query parameter, with Link headers advertising rel="next" on every page
// but the last.
func (m *MockCanvas) SetPages(path string, pages ...string) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			n, err := strconv.Atoi(p)
			if err != nil || n < 1 || n > len(pages) {
				writeResponse(w, NewStatusResponse(http.StatusBadRequest))
				return
			}
			page = n
		}

		w.Header().Set("Link", m.linkHeader(r.URL.Path, page, len(pages)))
		writeResponse(w, NewJSONResponse(pages[page-1]))
	})
}

func (m *MockCanvas) linkHeader(path string, page, total int) string {
	link := func(n int, rel string) string {
		return fmt.Sprintf(`<%s%s?page=%d>; rel="%s"`, m.URL(), path, n, rel)
	}

	parts := []string{link(page, "current")}
	if page < total {
		parts = append(parts, link(page+1, "next"))
	}
	if page > 1 {
		parts = append(parts, link(page-1, "prev"))
	}
	parts = append(parts, link(1, "first"), link(total, "last"))
	return strings.Join(parts, ",")
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewJSONResponse creates a 200 OK response with Canvas-like headers.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type":           "application/json; charset=utf-8",
			"X-Rate-Limit-Remaining": "700.0",
			"X-Request-Cost":         "0.5",
		},
	}
}

// NewStatusResponse creates an error response with a Canvas error body.
func NewStatusResponse(status int) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       fmt.Sprintf(`{"errors":[{"message":%q}]}`, http.StatusText(status)),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitedResponse creates a 200 OK response reporting a low bucket.
func NewRateLimitedResponse(body string, remaining float64) MockResponse {
	resp := NewJSONResponse(body)
	resp.Headers["X-Rate-Limit-Remaining"] = strconv.FormatFloat(remaining, 'f', 1, 64)
	return resp
}

// JSONArray renders n objects {"id": start+i} as a JSON array.
func JSONArray(start, n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"id":%d}`, start+i)
	}
	return "[" + strings.Join(items, ",") + "]"
}
