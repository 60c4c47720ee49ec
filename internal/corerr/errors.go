// Package corerr is the shared error type for the signaling core. Per the
// error handling design, nothing in the core is fatal: these errors are
// logged and dropped by callers, never panicked.
package corerr

import (
	"errors"
	"fmt"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrUnknownTarget   = errors.New("signal target not connected")
	ErrPeerNotFound    = errors.New("peer not found")
	ErrCapacityReached = errors.New("peer connection capacity reached")
	ErrMalformedEvent  = errors.New("malformed event payload")
)

// CoreError wraps an operation name, optional context, and the underlying
// error so logs can report "what failed doing what" without losing Unwrap.
type CoreError struct {
	Op      string
	Details string
	Err     error
}

func (e *CoreError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

func New(op string, err error) *CoreError {
	return &CoreError{Op: op, Err: err}
}

func Wrap(op string, err error, details string) *CoreError {
	return &CoreError{Op: op, Err: err, Details: details}
}
