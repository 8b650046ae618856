package client

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{
			name:       "client error should not retry",
			errorClass: ErrorClassClient,
			expected:   false,
		},
		{
			name:       "server error should retry",
			errorClass: ErrorClassServer,
			expected:   true,
		},
		{
			name:       "network error should not retry",
			errorClass: ErrorClassNetwork,
			expected:   false,
		},
		{
			name:       "empty error class should not retry",
			errorClass: "",
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shouldRetry(tt.errorClass)
			if result != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, result, tt.expected)
			}
		})
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name: "http error",
			err: &Error{
				Method:     "GET",
				URL:        "https://canvas.test/api/v1/courses",
				StatusCode: 503,
				Status:     "503 Service Unavailable",
				ErrorClass: ErrorClassServer,
			},
			expected: "canvas server error (status 503): GET https://canvas.test/api/v1/courses: 503 Service Unavailable",
		},
		{
			name: "http error with cause",
			err: &Error{
				Method:     "GET",
				URL:        "https://canvas.test/x",
				StatusCode: 200,
				Status:     "200 OK",
				ErrorClass: ErrorClassNetwork,
				Err:        io.ErrUnexpectedEOF,
			},
			expected: "canvas network error (status 200): GET https://canvas.test/x: 200 OK: unexpected EOF",
		},
		{
			name: "transport error",
			err: &Error{
				Method:     "PUT",
				URL:        "https://canvas.test/x",
				ErrorClass: ErrorClassNetwork,
				Err:        errors.New("dial tcp: lookup canvas.test: no such host"),
			},
			expected: "canvas network error: PUT https://canvas.test/x: dial tcp: lookup canvas.test: no such host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &Error{ErrorClass: ErrorClassNetwork, Err: cause}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if err.HasResponse() {
		t.Error("HasResponse() should be false without a status code")
	}
}

func TestStatusCode(t *testing.T) {
	apiErr := &Error{StatusCode: 404, ErrorClass: ErrorClassClient}

	if got := StatusCode(apiErr); got != 404 {
		t.Errorf("StatusCode(direct) = %d, want 404", got)
	}
	if got := StatusCode(fmt.Errorf("fetch page 2: %w", apiErr)); got != 404 {
		t.Errorf("StatusCode(wrapped) = %d, want 404", got)
	}
	if got := StatusCode(errors.New("plain")); got != 0 {
		t.Errorf("StatusCode(plain) = %d, want 0", got)
	}
}

func TestTruncateBody(t *testing.T) {
	short := []byte(`{"errors":[]}`)
	if got := truncateBody(short); got != string(short) {
		t.Errorf("truncateBody(short) = %q", got)
	}

	long := []byte(strings.Repeat("x", maxErrorBody+10))
	got := truncateBody(long)
	if len(got) != maxErrorBody+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncateBody(long) length = %d, want %d with ellipsis", len(got), maxErrorBody+3)
	}
}
