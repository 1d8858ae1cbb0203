package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// statusError signals a non-2xx reply from the backend.
type statusError struct {
	code int
	body string
}

func (e statusError) Error() string {
	msg := fmt.Sprintf("backend returned %d %s", e.code, http.StatusText(e.code))
	if e.body != "" {
		msg += ": " + e.body
	}
	return msg
}

// StatusCode returns the backend HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var se statusError
	if errors.As(err, &se) {
		return se.code, true
	}
	return 0, false
}

// unreachableError signals that no HTTP exchange happened (refused, DNS, reset).
type unreachableError struct{ err error }

func (e unreachableError) Error() string { return "backend unreachable: " + e.err.Error() }
func (e unreachableError) Unwrap() error { return e.err }

// IsUnreachable reports whether err means the backend could not be contacted.
func IsUnreachable(err error) bool {
	var ue unreachableError
	return errors.As(err, &ue)
}

// timeoutError signals that the configured backend timeout elapsed.
type timeoutError struct{ op string }

func (e timeoutError) Error() string { return "backend timeout: " + e.op }

// Is lets errors.Is(err, context.DeadlineExceeded) match.
func (e timeoutError) Is(target error) bool { return target == context.DeadlineExceeded }

// IsTimeout reports whether err is a backend timeout.
func IsTimeout(err error) bool {
	var te timeoutError
	return errors.As(err, &te)
}

// malformedError signals a 2xx reply the relay cannot use.
type malformedError struct{ msg string }

func (e malformedError) Error() string { return "malformed backend response: " + e.msg }

// ErrMalformed constructs a malformed-response error.
func ErrMalformed(msg string) error { return malformedError{msg: msg} }

// IsMalformed reports whether err indicates an unusable backend reply.
func IsMalformed(err error) bool {
	var me malformedError
	return errors.As(err, &me)
}
