package transport

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrClientStatus marks 4xx responses: the request named something the
	// server does not have or refused.
	ErrClientStatus = errors.New("transport: client error status")

	// ErrServerStatus marks 5xx and other non-success responses.
	ErrServerStatus = errors.New("transport: server error status")
)

// StatusError carries the HTTP status of a failed round-trip. It unwraps to
// ErrClientStatus or ErrServerStatus so callers can branch with errors.Is
// without inspecting codes.
type StatusError struct {
	Code     int
	Method   string
	Endpoint string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transport: %s %s returned status %d", e.Method, e.Endpoint, e.Code)
}

func (e *StatusError) Unwrap() error {
	if e.Code >= 400 && e.Code < 500 {
		return ErrClientStatus
	}
	return ErrServerStatus
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound
}

func classifyStatus(code int, method, endpoint string) error {
	if code >= 200 && code < 300 {
		return nil
	}
	return &StatusError{Code: code, Method: method, Endpoint: endpoint}
}
