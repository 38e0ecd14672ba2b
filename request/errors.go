package request

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOption is returned by Configure when options conflict,
	// e.g. two body sources or a content length disagreeing with an
	// in-memory body.
	ErrInvalidOption = errors.New("invalid option")

	// ErrProfileIncompatible is returned by ApplyProfile when the
	// handle's requested HTTP version is not advertised by the
	// profile's ALPN list.
	ErrProfileIncompatible = errors.New("profile incompatible with handle")

	// ErrHandleRunning is returned when an operation that requires a
	// quiescent handle is attempted while a transfer is in flight.
	ErrHandleRunning = errors.New("handle is running")

	// ErrNotRunning is returned by Cancel when no transfer is in flight.
	ErrNotRunning = errors.New("handle is not running")

	// ErrNeedsReset is returned by Start when a finished handle is
	// resubmitted without an intervening Reset.
	ErrNeedsReset = errors.New("handle needs reset before reuse")

	// ErrCancelled is the failure recorded when a running transfer is
	// cancelled by the caller.
	ErrCancelled = errors.New("transfer cancelled")

	// ErrNoResult is returned by Result before a transfer has finished.
	ErrNoResult = errors.New("no result: transfer has not completed")
)

// StateError reports an operation attempted in the wrong handle state.
type StateError struct {
	Op    string
	State State
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s in state %s: %v", e.Op, e.State, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}
