package state

import (
	"errors"
	"fmt"
)

// ErrInvalidPath is returned when a path string is malformed: empty, or
// containing empty segments (leading, trailing, or doubled dots).
var ErrInvalidPath = errors.New("treeline: invalid path")

// ErrAccessDenied is returned when a write targets a frozen namespace.
// See Engine.Freeze.
var ErrAccessDenied = errors.New("treeline: write to frozen namespace denied")

// ErrMutationVetoed signals that a middleware entry intentionally rejected
// a mutation. Middleware returns this to veto; Engine.Set absorbs it and
// leaves the prior value in place, so callers of Set never observe it.
var ErrMutationVetoed = errors.New("treeline: mutation vetoed")

// ErrBatchDivergence is returned by Engine.Flush when flush rounds exceed
// the configured maximum. It indicates a mutation feedback loop: a
// computation re-run keeps raising mutations that dirty its own inputs.
// The flush is aborted and the pending batch discarded; the engine itself
// remains usable.
var ErrBatchDivergence = errors.New("treeline: flush exceeded maximum rounds")

// ErrEngineClosed is returned from operations on a closed Engine.
var ErrEngineClosed = errors.New("treeline: engine closed")

// ComputationError reports a panic raised by a computation body during
// evaluation. It is delivered to the diagnostic log and observers, never
// propagated across the reactive boundary: the failing computation keeps
// its previous subscription set and last-good output until a future run
// succeeds.
type ComputationError struct {
	// Name is the computation's registered name.
	Name string

	// Recovered is the value recovered from the panic.
	Recovered any
}

// Error implements the error interface.
func (e *ComputationError) Error() string {
	return fmt.Sprintf("treeline: computation %q failed: %v", e.Name, e.Recovered)
}
