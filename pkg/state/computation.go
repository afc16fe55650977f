package state

// Computation is a unit of reactive work: a zero-argument function that
// reads paths and produces a value. The engine re-runs it whenever a path
// it read on its most recent invocation changes, then hands the new value
// to the apply callback (typically a render-target adapter).
//
// Computations are created with Engine.Observe and torn down with
// Engine.Dispose. A disposed computation is dropped from any in-flight
// candidate set it has not yet executed in.
type Computation struct {
	id   uint64
	name string

	// fn produces the computation's value; tracked while it runs.
	fn func() any

	// apply receives each successfully produced value. May be nil.
	apply func(any)

	// lastValue is the most recent successfully produced value. When a run
	// fails the previous value is retained (last-good semantics).
	lastValue any
	hasValue  bool

	// runs counts successful invocations.
	runs uint64

	disposed bool
}

// ID returns the unique identifier for this computation.
func (c *Computation) ID() uint64 {
	return c.id
}

// Name returns the name given at registration.
func (c *Computation) Name() string {
	return c.name
}

// Value returns the last successfully produced value.
// The second result is false before the first successful run.
func (c *Computation) Value() (any, bool) {
	return c.lastValue, c.hasValue
}

// Runs returns the number of successful invocations.
func (c *Computation) Runs() uint64 {
	return c.runs
}

// Disposed reports whether the computation has been torn down.
func (c *Computation) Disposed() bool {
	return c.disposed
}
