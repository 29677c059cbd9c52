package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTimeout marks a request that exceeded its deadline.
var ErrTimeout = errors.New("request timed out")

// TransportError is a network-level failure (DNS, connection refused, reset)
// that is not a timeout. These are generally worth retrying.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error on %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a non-2xx HTTP response. Snippet carries the first part of
// the body for diagnostics.
type StatusError struct {
	Code    int
	Snippet string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// Retryable reports whether a request failure is transient: network errors,
// timeouts, server-side 5xx responses, and rate limiting. Client errors
// (4xx) are permanent.
func Retryable(err error) bool {
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return false
}
