package apiclient

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Classify maps the outcome of an attempt to a Class. status is the HTTP
// status, or 0 when none was received; code is one of the Code* constants when
// the attempt failed below HTTP.
func Classify(status int, code string) Class {
	switch code {
	case CodeTimeout, CodeNetwork:
		return RetryableFailure
	case CodeCanceled, CodeInvalidRequest, CodeMalformed:
		return FatalFailure
	}

	switch {
	case status >= 200 && status < 300:
		return Success
	case status == http.StatusUnauthorized:
		return AuthFailure
	case status >= 500:
		return RetryableFailure
	default:
		return FatalFailure
	}
}

// transportCode describes an error returned by the HTTP client. parent is the
// caller's context; its cancellation is never reported as a timeout.
func transportCode(parent context.Context, err error) string {
	if parent.Err() != nil {
		return CodeCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeTimeout
	}
	return CodeNetwork
}
