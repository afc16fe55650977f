package render

import (
	"log/slog"
	"sync"

	"github.com/treeline-dev/treeline/pkg/rtree"
)

// Mode selects the reconciliation strategy.
type Mode uint8

const (
	ModeDirect  Mode = iota // In-place mutation, no intermediate representation
	ModeBatched             // Diff-and-recycle with minimal patch application
)

// String returns the string representation of the Mode.
func (m Mode) String() string {
	switch m {
	case ModeDirect:
		return "direct"
	case ModeBatched:
		return "batched"
	default:
		return "unknown"
	}
}

// DefaultFailureThreshold is how many consecutive batched failures are
// tolerated before the permanent downgrade to the direct strategy.
const DefaultFailureThreshold = 3

// Reconciler supervises the two strategies over one render target. It
// holds the previous tree, the ref-to-handle registry, and the failure
// counter driving the automatic one-way fallback from batched to direct
// mode.
type Reconciler struct {
	mu sync.Mutex

	t    Target
	root NodeHandle
	reg  *registry
	pool *Pool

	direct  *directStrategy
	batched *batchedStrategy

	mode      Mode
	fellBack  bool
	failures  int
	threshold int

	prev *rtree.Node

	logger    *slog.Logger
	observers []Observer
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithMode sets the initial strategy. Default ModeBatched.
func WithMode(m Mode) ReconcilerOption {
	return func(r *Reconciler) { r.mode = m }
}

// WithFailureThreshold sets the consecutive-failure count that triggers
// the permanent downgrade. Default DefaultFailureThreshold.
func WithFailureThreshold(n int) ReconcilerOption {
	return func(r *Reconciler) {
		if n > 0 {
			r.threshold = n
		}
	}
}

// WithPoolCapacity sizes the recycle pool (per node type).
func WithPoolCapacity(n int) ReconcilerOption {
	return func(r *Reconciler) { r.pool = NewPool(n) }
}

// WithRenderLogger sets the diagnostic logger. Defaults to slog.Default().
func WithRenderLogger(l *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRenderObserver registers an observer for reconciler notifications.
func WithRenderObserver(o Observer) ReconcilerOption {
	return func(r *Reconciler) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// NewReconciler creates a reconciler applying trees under root on t.
func NewReconciler(t Target, root NodeHandle, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		t:         t,
		root:      root,
		reg:       newRegistry(),
		pool:      NewPool(0),
		mode:      ModeBatched,
		threshold: DefaultFailureThreshold,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.direct = &directStrategy{t: t, reg: r.reg, root: root}
	r.batched = &batchedStrategy{t: t, reg: r.reg, pool: r.pool, root: root}
	return r
}

// SetMode selects the strategy explicitly. After the automatic fallback
// has fired, batched mode can no longer be re-enabled for this session.
func (r *Reconciler) SetMode(m Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fellBack && m == ModeBatched {
		r.logger.Warn("batched mode unavailable after fallback, staying direct")
		return
	}
	r.mode = m
}

// Mode returns the strategy currently in effect.
func (r *Reconciler) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// PoolStats returns the recycle pool's acquire hit/miss counts.
func (r *Reconciler) PoolStats() (hits, misses uint64) {
	return r.pool.Stats()
}

// FellBack reports whether the automatic downgrade has fired.
func (r *Reconciler) FellBack() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fellBack
}

// Render reconciles next against the previously rendered tree and applies
// the difference to the target. A nil next unmounts everything.
//
// Batched-strategy failures are recovered by remounting the tree from
// scratch; once the consecutive-failure threshold is reached the
// reconciler downgrades to the direct strategy for the remainder of the
// session and surfaces a non-fatal diagnostic.
func (r *Reconciler) Render(next *rtree.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// First mount and unmount are strategy-independent.
	if r.prev == nil {
		if next == nil {
			return nil
		}
		return r.mount(next)
	}
	if next == nil {
		err := removeSubtree(r.t, r.reg, r.pool, r.prev)
		r.prev = nil
		return err
	}

	if r.mode == ModeBatched && !r.fellBack {
		ops, err := r.batched.Apply(r.prev, next)
		if err == nil {
			r.failures = 0
			r.finish(next, "batched", ops)
			return nil
		}

		r.failures++
		r.logger.Error("batched reconciliation failed",
			"error", err, "consecutive", r.failures)
		for _, o := range r.observers {
			o.ApplyFailed("batched", err)
		}
		if r.failures >= r.threshold {
			r.fellBack = true
			r.mode = ModeDirect
			r.logger.Warn("switching to direct rendering for this session",
				"failures", r.failures)
			for _, o := range r.observers {
				o.FallbackTriggered(r.failures)
			}
		}
		// The target may be half-patched; recover by remounting.
		return r.remount(next)
	}

	ops, err := r.direct.Apply(r.prev, next)
	if err != nil {
		r.logger.Error("direct reconciliation failed", "error", err)
		for _, o := range r.observers {
			o.ApplyFailed("direct", err)
		}
		return r.remount(next)
	}
	r.finish(next, "direct", ops)
	return nil
}

// mount performs the initial render of a tree.
func (r *Reconciler) mount(next *rtree.Node) error {
	rtree.AssignRefs(next)
	ops, err := mountSubtree(r.t, r.reg, r.pool, next, r.root, 0)
	if err != nil {
		return err
	}
	r.finish(next, r.mode.String(), ops)
	return nil
}

// remount tears the mounted tree down and mounts next fresh. Used to
// recover a consistent target after a strategy error.
func (r *Reconciler) remount(next *rtree.Node) error {
	if r.prev != nil {
		if err := removeSubtree(r.t, r.reg, r.pool, r.prev); err != nil {
			r.logger.Error("remount teardown failed", "error", err)
		}
	}
	r.reg.pruneTo(map[string]struct{}{})
	r.prev = nil
	next.Ref = ""
	return r.mount(next)
}

// finish records the applied tree and prunes registry entries for
// subtrees that dropped out during this pass.
func (r *Reconciler) finish(next *rtree.Node, mode string, ops int) {
	r.prev = next
	live := make(map[string]struct{})
	liveRefs(next, live)
	r.reg.pruneTo(live)
	for _, o := range r.observers {
		o.Applied(mode, ops)
	}
}
