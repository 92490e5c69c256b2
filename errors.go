package sweeper

import (
	"errors"
	"fmt"

	"github.com/layer-3/sweeper/core"
)

var (
	// ErrUnexpectedResponse is returned when the daemon replies with a body
	// the client cannot decode
	ErrUnexpectedResponse = errors.New("unexpected response")

	// ErrNotSwept is returned by SweepRecord for accounts that have not been
	// swept
	ErrNotSwept = errors.New("account has not been swept")

	// ErrNoOperatorToken is returned when an operator call is made by a
	// client built without a token
	ErrNoOperatorToken = errors.New("no operator token configured")
)

// APIError is an error reported by the daemon.
type APIError struct {
	StatusCode int
	Message    string

	// Code is the protocol error code, zero for transport level failures.
	Code uint32
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("sweeper: %s (code %d, status %d)", e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("sweeper: %s (status %d)", e.Message, e.StatusCode)
}

// Unwrap returns the protocol sentinel matching Code, so that callers can
// use errors.Is against the core errors.
func (e *APIError) Unwrap() error {
	if ce, ok := core.ErrorByCode(e.Code); ok {
		return ce
	}
	return nil
}
