package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Class is the outcome of classifying an attempt.
type Class int

const (
	Success Class = iota
	AuthFailure
	RetryableFailure
	FatalFailure
)

func (c Class) String() string {
	switch c {
	case Success:
		return "success"
	case AuthFailure:
		return "auth_failure"
	case RetryableFailure:
		return "retryable_failure"
	case FatalFailure:
		return "fatal_failure"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Error codes describing failures that carry no HTTP status, or whose body
// could not be understood.
const (
	CodeTimeout        = "timeout"
	CodeNetwork        = "network_unreachable"
	CodeCanceled       = "canceled"
	CodeMalformed      = "malformed"
	CodeInvalidRequest = "invalid_request"
)

var ErrNilRequest = errors.New("apiclient: nil request")

// Error is returned for every request that does not end in Success. It is
// the error of the last attempt, returned unchanged once retrying stops.
type Error struct {
	Class      Class
	Method     string
	Path       string
	StatusCode int
	Code       string
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "apiclient: %s %s", e.Method, e.Path)
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, ": %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Code != "" {
		fmt.Fprintf(&sb, ": %s", e.Code)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func classOf(err error) (Class, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return 0, false
	}
	return e.Class, true
}

// IsAuthFailure reports whether err is a 401 from the finance API.
func IsAuthFailure(err error) bool {
	c, ok := classOf(err)
	return ok && c == AuthFailure
}

// IsRetryable reports whether err is a transient failure which outlasted the
// retry budget.
func IsRetryable(err error) bool {
	c, ok := classOf(err)
	return ok && c == RetryableFailure
}

func IsFatal(err error) bool {
	c, ok := classOf(err)
	return ok && c == FatalFailure
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
