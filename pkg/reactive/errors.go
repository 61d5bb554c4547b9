package reactive

import (
	"errors"
	"fmt"
)

// ErrCycle is matched by every CycleError. A cycle is raised when a signal
// keeps re-entering its own notification or evaluation, typically because a
// follower writes to the signal it follows or a callback reads itself.
var ErrCycle = errors.New("reactive: cycle detected")

// ErrLoopClosed is returned when work is dispatched to a closed Loop.
var ErrLoopClosed = errors.New("reactive: loop closed")

// CycleError is the panic value raised when the re-entry limit is exceeded.
type CycleError struct {
	ID    uint64
	Kind  Kind
	Depth int
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("reactive: cycle detected at %s signal %d (depth %d)", e.Kind, e.ID, e.Depth)
}

// Unwrap returns ErrCycle for errors.Is support.
func (e *CycleError) Unwrap() error {
	return ErrCycle
}
