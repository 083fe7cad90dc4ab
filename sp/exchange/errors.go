package exchange

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport is matched by every TransportError
	ErrTransport = errors.New("transport error")
	// ErrLengthMismatch is matched by every LengthMismatchError
	ErrLengthMismatch = errors.New("length mismatch")
	// ErrShortSend is returned if the socket accepted fewer bytes than requested
	ErrShortSend = errors.New("short send")
	// ErrInvalidConfig is returned by Run for unusable settings, before any socket is created
	ErrInvalidConfig = errors.New("invalid exchange config")
)

// TransportError is returned when a socket operation fails.
// Op names the failed step (socket, bind, connect, send, recv, free, close)
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrTransport, e.Op, e.Err)
}

// Unwrap exposes both ErrTransport and the cause
func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// LengthMismatchError is returned when a received message does not have the
// expected length. Got is the full length of the message, even if it was truncated
type LengthMismatchError struct {
	Op       string
	Expected int
	Got      int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("%s: %s: expected %d bytes, got %d", ErrLengthMismatch, e.Op, e.Expected, e.Got)
}

func (e *LengthMismatchError) Is(target error) bool {
	return target == ErrLengthMismatch
}
