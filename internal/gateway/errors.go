package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure classes. Callers treat all three the same way; they exist so
// that logs and tests can tell them apart.
var (
	// ErrTransport means the request never produced a response.
	ErrTransport = errors.New("transport failure")
	// ErrUnexpectedStatus means the store answered with a status other than 200.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrMalformedResponse means a 200 body did not have the expected shape.
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError carries the status of a non-200 response.
// It matches ErrUnexpectedStatus with errors.Is.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s %d %s", e.Op, ErrUnexpectedStatus, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is reports whether target is ErrUnexpectedStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not
// a StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
