package gatews

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrConnectionClosed = errors.New("connection has been closed")
	ErrCannotConnect    = errors.New("connection cannot be established")
	ErrTerminated       = errors.New("program exit")
	ErrRateLimit        = errors.New("rate limit exceeded")

	// ErrSessionReused signals that Handle was invoked on a session instance that
	// already ran. Sessions span exactly one connection attempt.
	ErrSessionReused = errors.New("session has already been handled")

	// ErrPartialDisconnect is raised when an abrupt close is requested without a
	// cause: the session was aborted on purpose, not because of an upstream fault.
	ErrPartialDisconnect = errors.New("partial disconnect without cause")
)

// DecompressionError marks the inbound compressed stream as unusable. It is always
// fatal to the session carrying it.
type DecompressionError struct {
	err error
}

func (e DecompressionError) Error() string {
	return fmt.Sprintf("cannot decompress inbound stream: %s", e.err)
}

func (e DecompressionError) Unwrap() error { return e.err }

func WrapErrorDecompression(err error) *DecompressionError {
	if err == nil {
		return nil
	}
	return &DecompressionError{err: err}
}
