package state

import "time"

// Observer receives engine lifecycle notifications. Implementations feed
// metrics, tracing, and live inspection; they run synchronously under the
// engine lock and must be fast and must not call back into the engine.
//
// Embed NopObserver to implement only the notifications you care about.
type Observer interface {
	// MutationCommitted fires after a value is committed at path.
	MutationCommitted(path string, value any)

	// MutationVetoed fires when middleware rejects a mutation.
	MutationVetoed(path string)

	// FlushStart fires when a flush begins draining rounds.
	FlushStart()

	// FlushEnd fires when a flush completes. rounds is the number of
	// rounds drained, computations the total re-runs performed.
	FlushEnd(rounds, computations int, d time.Duration)

	// ComputationRan fires after each successful computation run.
	ComputationRan(name string, d time.Duration)

	// ComputationFailed fires when a computation body panics.
	ComputationFailed(name string, err error)

	// BatchDiverged fires when a flush aborts after exceeding its round
	// limit.
	BatchDiverged(rounds int)
}

// NopObserver implements Observer with no-ops for embedding.
type NopObserver struct{}

func (NopObserver) MutationCommitted(string, any)        {}
func (NopObserver) MutationVetoed(string)                {}
func (NopObserver) FlushStart()                          {}
func (NopObserver) FlushEnd(int, int, time.Duration)     {}
func (NopObserver) ComputationRan(string, time.Duration) {}
func (NopObserver) ComputationFailed(string, error)      {}
func (NopObserver) BatchDiverged(int)                    {}
