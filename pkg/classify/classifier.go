package classify

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redkyn/canvas-client/pkg/client"
)

var canvasClassifiedErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "canvas_classified_errors_total",
	Help: "Total number of Canvas failures translated into typed errors by kind",
}, []string{"kind"})

// Scope names the kind of resource a call concerned. It decides which
// NotFound variant a 404 becomes.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeCourse
	ScopeStudent
	ScopeAssignment
)

// String returns the scope name.
func (s Scope) String() string {
	switch s {
	case ScopeCourse:
		return "course"
	case ScopeStudent:
		return "student"
	case ScopeAssignment:
		return "assignment"
	default:
		return "none"
	}
}

// DNSMarkers are substrings that identify a name resolution failure in an
// error description.
var DNSMarkers = []string{
	"no such host",
	"Name or service not known",
}

// Rule maps a matching failure to a Kind. Match returns false to fall
// through to the next rule.
type Rule struct {
	Name  string
	Match func(err error, scope Scope) (Kind, bool)
}

// Classifier evaluates rules in order; the first match wins.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier over rules. With no rules it uses DefaultRules.
func NewClassifier(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// DefaultRules returns the Canvas taxonomy in priority order:
// name resolution, authentication, then scoped not-found.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "name_resolution", Match: matchNameResolution},
		{Name: "authentication", Match: matchStatus(http.StatusUnauthorized, KindAuthenticationFailed)},
		{Name: "not_found", Match: matchNotFound},
	}
}

// Classify returns a typed *Error for the first matching rule, or err
// unchanged when nothing matches. A nil err stays nil.
func (c *Classifier) Classify(err error, scope Scope) error {
	if err == nil {
		return nil
	}

	// Already classified further down the call chain.
	if KindOf(err) != "" {
		return err
	}

	for _, rule := range c.rules {
		kind, ok := rule.Match(err, scope)
		if !ok {
			continue
		}
		canvasClassifiedErrorsTotal.WithLabelValues(string(kind)).Inc()
		return New(kind, client.StatusCode(err), err)
	}

	return err
}

var defaultClassifier = NewClassifier()

// Classify applies the default rules.
func Classify(err error, scope Scope) error {
	return defaultClassifier.Classify(err, scope)
}

func matchNameResolution(err error, _ Scope) (Kind, bool) {
	var apiErr *client.Error
	if errors.As(err, &apiErr) && apiErr.HasResponse() {
		return "", false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindNameResolutionFailed, true
	}

	msg := err.Error()
	for _, marker := range DNSMarkers {
		if strings.Contains(msg, marker) {
			return KindNameResolutionFailed, true
		}
	}
	return "", false
}

func matchStatus(status int, kind Kind) func(error, Scope) (Kind, bool) {
	return func(err error, _ Scope) (Kind, bool) {
		if client.StatusCode(err) == status {
			return kind, true
		}
		return "", false
	}
}

func matchNotFound(err error, scope Scope) (Kind, bool) {
	if client.StatusCode(err) != http.StatusNotFound {
		return "", false
	}

	switch scope {
	case ScopeCourse:
		return KindCourseNotFound, true
	case ScopeStudent:
		return KindStudentNotFound, true
	case ScopeAssignment:
		return KindAssignmentNotFound, true
	default:
		return "", false
	}
}
