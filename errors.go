package trayapp

import (
	"errors"
	"fmt"
)

var (
	// ErrDisconnected is reported by the event pump when the platform window
	// terminated and no further activations can arrive.
	ErrDisconnected = errors.New("event channel is disconnected")

	// ErrTimeout is reported by a timed receive that elapsed before an
	// activation arrived. [Application.WaitForMessageTimeout] treats it as an
	// expected condition and does not return it to the caller.
	ErrTimeout = errors.New("timed out waiting for activation")

	// ErrNotImplemented is reported for operations that are recognized but not
	// supported on the current platform.
	ErrNotImplemented = errors.New("not implemented on this platform")
)

// OSError is a failure reported by the platform layer, such as a refused bus
// name or a failed native call.
//
// Use [errors.As] to extract it from wrapped errors.
type OSError struct {
	// Detail describes what the platform layer was doing when it failed.
	Detail string

	// Err is the underlying cause, if any.
	Err error
}

func (e *OSError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	return e.Detail
}

func (e *OSError) Unwrap() error {
	return e.Err
}
