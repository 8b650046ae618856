// Package classify translates raw Canvas request failures into the typed
// errors resource callers return.
package classify

import (
	"errors"
	"fmt"
)

// Kind identifies a typed Canvas failure.
type Kind string

const (
	KindAuthenticationFailed Kind = "authentication_failed"
	KindCourseNotFound       Kind = "course_not_found"
	KindAssignmentNotFound   Kind = "assignment_not_found"
	KindStudentNotFound      Kind = "student_not_found"
	KindNameResolutionFailed Kind = "name_resolution_failed"
)

// Sentinel errors for errors.Is checks.
var (
	ErrAuthenticationFailed = errors.New("canvas authentication failed")
	ErrCourseNotFound       = errors.New("canvas course not found")
	ErrAssignmentNotFound   = errors.New("canvas assignment not found")
	ErrStudentNotFound      = errors.New("canvas student not found")
	ErrNameResolutionFailed = errors.New("canvas host name could not be resolved")
)

var sentinels = map[Kind]error{
	KindAuthenticationFailed: ErrAuthenticationFailed,
	KindCourseNotFound:       ErrCourseNotFound,
	KindAssignmentNotFound:   ErrAssignmentNotFound,
	KindStudentNotFound:      ErrStudentNotFound,
	KindNameResolutionFailed: ErrNameResolutionFailed,
}

// Error is a classified failure. Err keeps the original failure.
type Error struct {
	Kind       Kind
	StatusCode int
	Err        error
}

// New returns a typed error of kind k wrapping cause (which may be nil).
func New(k Kind, statusCode int, cause error) *Error {
	return &Error{Kind: k, StatusCode: statusCode, Err: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Sentinel().Error()
	if e.Err == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error for e.Kind.
func (e *Error) Is(target error) bool {
	return target == e.Sentinel()
}

// Sentinel returns the package-level error value for e.Kind.
func (e *Error) Sentinel() error {
	if s, ok := sentinels[e.Kind]; ok {
		return s
	}
	return fmt.Errorf("canvas %s", e.Kind)
}

// KindOf returns the Kind of a classified error, or "" if err is not one.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return ""
}
