package state

import "time"

// Policy selects how the scheduler turns mutations into re-runs.
type Policy uint8

const (
	// PolicyImmediate flushes synchronously: each Set notifies and re-runs
	// dependents before it returns. Fully ordered, no staleness window,
	// O(dependents) cost per individual mutation.
	PolicyImmediate Policy = iota

	// PolicyDeferred coalesces mutations raised within a scheduling window
	// into one flush. Multiple Sets to the same path keep only the last
	// value; the dependent set is the union across the batch.
	PolicyDeferred
)

// String returns the string representation of the Policy.
func (p Policy) String() string {
	switch p {
	case PolicyImmediate:
		return "immediate"
	case PolicyDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// Batch scheduling defaults.
const (
	DefaultMaxBatchSize   = 1024
	DefaultMaxFlushRounds = 100
)

// BatchOptions configures the batching scheduler.
type BatchOptions struct {
	// Policy selects immediate or deferred flushing.
	Policy Policy

	// MaxBatchSize forces an early flush once the pending batch holds this
	// many distinct paths, bounding worst-case latency and memory.
	// Default DefaultMaxBatchSize.
	MaxBatchSize int

	// FlushDelay is how long a deferred flush waits. Zero means the next
	// scheduling opportunity after the current synchronous task.
	FlushDelay time.Duration

	// MaxFlushRounds bounds the rounds a single flush may drain. Mutations
	// raised during a flush round land in a fresh batch drained by the next
	// round; exceeding the limit aborts with ErrBatchDivergence.
	// Default DefaultMaxFlushRounds.
	MaxFlushRounds int
}

func (o *BatchOptions) applyDefaults() {
	if o.MaxBatchSize <= 0 {
		o.MaxBatchSize = DefaultMaxBatchSize
	}
	if o.MaxFlushRounds <= 0 {
		o.MaxFlushRounds = DefaultMaxFlushRounds
	}
	if o.FlushDelay < 0 {
		o.FlushDelay = 0
	}
}

// scheduler owns the pending batch: an ordered, de-duplicated set of dirty
// paths. Commits happen at Set time; what the batch defers is notification
// and re-run. All fields are guarded by the engine lock.
type scheduler struct {
	opts BatchOptions

	pending    []string
	pendingSet map[string]struct{}

	// batchDepth > 0 while inside Engine.Batch; flush waits for depth 0.
	batchDepth int

	// flushing prevents recursive flushes: mutations raised by a re-run
	// accumulate and are drained by the next round of the active flush.
	flushing bool

	// timer drives deferred flushes; timerArmed dedups scheduling.
	timer      *time.Timer
	timerArmed bool
}

func newScheduler(opts BatchOptions) *scheduler {
	opts.applyDefaults()
	return &scheduler{
		opts:       opts,
		pendingSet: make(map[string]struct{}),
	}
}

// enqueue adds paths to the pending batch, preserving first-touch order.
// Reports whether the batch now exceeds MaxBatchSize.
func (s *scheduler) enqueue(paths []string) (overflow bool) {
	for _, p := range paths {
		if _, dup := s.pendingSet[p]; dup {
			continue
		}
		s.pendingSet[p] = struct{}{}
		s.pending = append(s.pending, p)
	}
	return len(s.pending) >= s.opts.MaxBatchSize
}

// drain snapshots and clears the pending batch.
func (s *scheduler) drain() []string {
	if len(s.pending) == 0 {
		return nil
	}
	paths := s.pending
	s.pending = nil
	s.pendingSet = make(map[string]struct{})
	return paths
}

// dropPending removes a path from the pending batch, used when its
// namespace is torn down before the flush runs.
func (s *scheduler) dropPending(path string) {
	if _, ok := s.pendingSet[path]; !ok {
		return
	}
	delete(s.pendingSet, path)
	for i, p := range s.pending {
		if p == path {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
}

// reset discards all pending work, used after a divergence abort.
func (s *scheduler) reset() {
	s.pending = nil
	s.pendingSet = make(map[string]struct{})
}

func (s *scheduler) hasPending() bool {
	return len(s.pending) > 0
}
