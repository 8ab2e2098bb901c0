package host

import (
	"errors"
	"fmt"
)

// ErrPreloadPending is returned by Start before Preload has completed.
var ErrPreloadPending = errors.New("preload has not completed")

// ErrNoRuntime is returned by Start when the host was built without a runtime.
var ErrNoRuntime = errors.New("no wasm runtime configured")

// ErrGuestClosed is returned by Frame once the guest module has been closed.
var ErrGuestClosed = errors.New("guest module is closed")

// StateError occurs when an operation is invalid in the host's current state.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s while host is %s", e.Op, e.State)
}

// FatalError wraps a failure after which the guest can no longer run.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("guest halted: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
