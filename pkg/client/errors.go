package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrInvalidJSON is returned when a successful response body is not valid JSON.
	ErrInvalidJSON = errors.New("response body is not valid JSON")
)

// maxErrorBody caps how much of an error response body is kept on Error.
const maxErrorBody = 512

// Error is a failed Canvas request. StatusCode is zero when no response was
// received, in which case Err holds the transport failure.
type Error struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string
	ErrorClass ErrorClass
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("canvas %s error: %s %s: %v", e.ErrorClass, e.Method, e.URL, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("canvas %s error (status %d): %s %s: %s: %v",
			e.ErrorClass, e.StatusCode, e.Method, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("canvas %s error (status %d): %s %s: %s",
		e.ErrorClass, e.StatusCode, e.Method, e.URL, e.Status)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// HasResponse reports whether the server answered the request.
func (e *Error) HasResponse() bool {
	return e.StatusCode != 0
}

// StatusCode returns the HTTP status carried by err, or 0 if err does not
// wrap an *Error with a response.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassClient:
		// 4xx responses are final
		return false
	case ErrorClassServer:
		return true
	case ErrorClassNetwork:
		// No response means nothing to retry against; surface it.
		return false
	default:
		return false
	}
}

func truncateBody(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
