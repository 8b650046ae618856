package classify

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/redkyn/canvas-client/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusErr(status int) *client.Error {
	class := client.ErrorClassClient
	if status >= 500 {
		class = client.ErrorClassServer
	}
	return &client.Error{
		Method:     http.MethodGet,
		URL:        "https://canvas.test/api/v1/courses",
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		ErrorClass: class,
	}
}

func transportErr(cause error) *client.Error {
	return &client.Error{
		Method:     http.MethodGet,
		URL:        "https://canvas.invalid/api/v1/courses",
		ErrorClass: client.ErrorClassNetwork,
		Err:        cause,
	}
}

func TestClassify_NameResolution(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "net.DNSError",
			err:  transportErr(&net.DNSError{Err: "no such host", Name: "canvas.invalid", IsNotFound: true}),
		},
		{
			name: "marker in message",
			err:  transportErr(errors.New("dial tcp: lookup canvas.invalid: Name or service not known")),
		},
		{
			name: "bare error with marker",
			err:  errors.New("lookup canvas.invalid: no such host"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, scope := range []Scope{ScopeNone, ScopeCourse, ScopeStudent} {
				got := Classify(tt.err, scope)
				assert.ErrorIs(t, got, ErrNameResolutionFailed, "scope %s", scope)
				assert.ErrorIs(t, got, tt.err, "original failure should stay in the chain")
			}
		})
	}
}

func TestClassify_ResponsePresentIsNotNameResolution(t *testing.T) {
	err := statusErr(http.StatusBadGateway)
	err.Body = `{"message":"upstream: no such host"}`
	err.Err = errors.New("no such host")

	got := Classify(err, ScopeCourse)
	assert.Same(t, err, got, "an error with a response must pass through")
	assert.Equal(t, Kind(""), KindOf(got))
}

func TestClassify_Authentication(t *testing.T) {
	for _, scope := range []Scope{ScopeNone, ScopeCourse, ScopeStudent, ScopeAssignment} {
		got := Classify(statusErr(http.StatusUnauthorized), scope)

		assert.ErrorIs(t, got, ErrAuthenticationFailed, "scope %s", scope)
		assert.Equal(t, KindAuthenticationFailed, KindOf(got))

		var typed *Error
		require.ErrorAs(t, got, &typed)
		assert.Equal(t, http.StatusUnauthorized, typed.StatusCode)
	}
}

func TestClassify_NotFoundByScope(t *testing.T) {
	tests := []struct {
		scope    Scope
		expected error
	}{
		{scope: ScopeCourse, expected: ErrCourseNotFound},
		{scope: ScopeStudent, expected: ErrStudentNotFound},
		{scope: ScopeAssignment, expected: ErrAssignmentNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.scope.String(), func(t *testing.T) {
			raw := statusErr(http.StatusNotFound)
			got := Classify(raw, tt.scope)

			assert.ErrorIs(t, got, tt.expected)
			assert.ErrorIs(t, got, raw)
			assert.Equal(t, http.StatusNotFound, client.StatusCode(got))
		})
	}
}

func TestClassify_PassThrough(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		scope Scope
	}{
		{name: "404 without scope", err: statusErr(http.StatusNotFound), scope: ScopeNone},
		{name: "403", err: statusErr(http.StatusForbidden), scope: ScopeCourse},
		{name: "exhausted 503", err: fmt.Errorf("%w: %w", client.ErrRetryExhausted, statusErr(503)), scope: ScopeCourse},
		{name: "connection refused", err: transportErr(errors.New("connect: connection refused")), scope: ScopeStudent},
		{name: "invalid json", err: client.ErrInvalidJSON, scope: ScopeCourse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, tt.scope)
			assert.Equal(t, tt.err, got)
			assert.Equal(t, Kind(""), KindOf(got))
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	assert.NoError(t, Classify(nil, ScopeCourse))
}

func TestClassify_AlreadyClassified(t *testing.T) {
	typed := New(KindStudentNotFound, http.StatusNotFound, statusErr(http.StatusNotFound))
	wrapped := fmt.Errorf("get submission: %w", typed)

	got := Classify(wrapped, ScopeCourse)
	assert.Same(t, wrapped, got)
	assert.ErrorIs(t, got, ErrStudentNotFound)
	assert.NotErrorIs(t, got, ErrCourseNotFound)
}

func TestClassifier_FirstMatchWins(t *testing.T) {
	always := func(k Kind) Rule {
		return Rule{Name: string(k), Match: func(error, Scope) (Kind, bool) { return k, true }}
	}

	c := NewClassifier(always(KindCourseNotFound), always(KindAuthenticationFailed))
	got := c.Classify(errors.New("anything"), ScopeNone)

	assert.ErrorIs(t, got, ErrCourseNotFound)
	assert.NotErrorIs(t, got, ErrAuthenticationFailed)
}

func TestClassifier_CustomRules(t *testing.T) {
	forbidden := Rule{
		Name:  "forbidden_as_auth",
		Match: matchStatus(http.StatusForbidden, KindAuthenticationFailed),
	}
	c := NewClassifier(append([]Rule{forbidden}, DefaultRules()...)...)

	assert.ErrorIs(t, c.Classify(statusErr(http.StatusForbidden), ScopeCourse), ErrAuthenticationFailed)
	assert.ErrorIs(t, c.Classify(statusErr(http.StatusNotFound), ScopeCourse), ErrCourseNotFound)
}

func TestDefaultRules_Order(t *testing.T) {
	rules := DefaultRules()
	require.Len(t, rules, 3)
	assert.Equal(t, "name_resolution", rules[0].Name)
	assert.Equal(t, "authentication", rules[1].Name)
	assert.Equal(t, "not_found", rules[2].Name)
}
