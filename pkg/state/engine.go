package state

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Engine is the owned service object tying the path store, dependency
// tracker, subscription graph, middleware pipeline, and batching scheduler
// together. Collaborators receive it by reference; there is no ambient
// global instance.
//
// Execution is single-threaded cooperative: exactly one computation or
// flush round runs at a time. The engine lock is re-entrant per goroutine
// so computation bodies can call Get and Set while they run under a flush.
type Engine struct {
	mu     sync.Mutex
	holder atomic.Uint64 // goroutine currently holding mu

	store    *pathStore
	tracker  tracker
	graph    *subscriptionGraph
	sched    *scheduler
	pipeline pipeline

	// frozen holds read-only namespace prefixes.
	frozen []string

	observers []Observer
	logger    *slog.Logger

	closed bool
}

// Option configures a new Engine.
type Option func(*Engine)

// WithLogger sets the diagnostic logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithBatchOptions sets the initial scheduler configuration.
func WithBatchOptions(opts BatchOptions) Option {
	return func(e *Engine) {
		e.sched = newScheduler(opts)
	}
}

// WithObserver registers an observer at construction time.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// New creates an Engine with an empty store.
func New(opts ...Option) *Engine {
	e := &Engine{
		store:  newPathStore(),
		graph:  newSubscriptionGraph(),
		sched:  newScheduler(BatchOptions{}),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// lock acquires the engine lock unless the current goroutine already holds
// it, in which case the returned unlock is a no-op. This is what lets a
// computation running inside a flush call back into Get/Set.
func (e *Engine) lock() (unlock func()) {
	gid := goroutineID()
	if e.holder.Load() == gid {
		return func() {}
	}
	e.mu.Lock()
	e.holder.Store(gid)
	return func() {
		e.holder.Store(0)
		e.mu.Unlock()
	}
}

// Get returns the current value at path, or def if the path is absent or
// malformed. When a computation is active, the read is recorded against
// the innermost computation so it re-runs if the path later changes.
// Returned composite values are structural snapshots and must be treated
// as immutable; mutate through Set only.
func (e *Engine) Get(path string, def any) any {
	unlock := e.lock()
	defer unlock()

	segs, err := splitPath(path)
	if err != nil {
		return def
	}
	e.tracker.recordRead(path)
	v, ok := e.store.get(segs)
	if !ok {
		return def
	}
	return v
}

// Peek returns the value at path without recording a dependency.
func (e *Engine) Peek(path string, def any) any {
	unlock := e.lock()
	defer unlock()

	segs, err := splitPath(path)
	if err != nil {
		return def
	}
	v, ok := e.store.get(segs)
	if !ok {
		return def
	}
	return v
}

// Has reports whether a value exists at path.
func (e *Engine) Has(path string) bool {
	unlock := e.lock()
	defer unlock()

	segs, err := splitPath(path)
	if err != nil {
		return false
	}
	return e.store.has(segs)
}

// Set runs value through the middleware pipeline and, unless vetoed,
// commits it at path and schedules dependents for re-run under the current
// batching policy. A veto is a recoverable no-op: the prior value is
// retained and Set returns nil.
//
// Structural writes propagate: replacing a subtree dirties every path that
// existed under the old value and every path under the new one, and
// subscribers of ancestor paths are notified at flush time.
func (e *Engine) Set(path string, value any) error {
	unlock := e.lock()
	defer unlock()

	if e.closed {
		return ErrEngineClosed
	}
	segs, err := splitPath(path)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	if e.isFrozen(path) {
		return fmt.Errorf("%w: %q", ErrAccessDenied, path)
	}

	old, hadOld := e.store.get(segs)
	mc := &MutationContext{HasPrior: hadOld, Time: time.Now()}
	final, err := e.pipeline.run(path, old, value, mc)
	if err != nil {
		if !errors.Is(err, ErrMutationVetoed) {
			e.logger.Debug("mutation rejected by middleware", "path", path, "error", err)
		}
		for _, o := range e.observers {
			o.MutationVetoed(path)
		}
		return nil
	}

	if hadOld && !valueChanged(old, final) {
		return nil
	}

	_, _, touched, err := e.store.set(path, segs, final)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	for _, o := range e.observers {
		o.MutationCommitted(path, final)
	}

	dirty := make([]string, 0, len(touched)+1)
	dirty = append(dirty, path)
	dirty = append(dirty, touched...)
	e.scheduleLocked(dirty)
	return nil
}

// Delete removes the value at path, dirtying it and every descendant.
func (e *Engine) Delete(path string) error {
	unlock := e.lock()
	defer unlock()

	if e.closed {
		return ErrEngineClosed
	}
	segs, err := splitPath(path)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	if e.isFrozen(path) {
		return fmt.Errorf("%w: %q", ErrAccessDenied, path)
	}

	removed := e.store.remove(path, segs)
	if len(removed) == 0 {
		return nil
	}
	for _, o := range e.observers {
		o.MutationCommitted(path, nil)
	}
	e.scheduleLocked(removed)
	return nil
}

// RegisterMiddleware appends m to the mutation pipeline.
// Pipeline order is registration order; there is no priority system.
func (e *Engine) RegisterMiddleware(m Middleware) {
	unlock := e.lock()
	defer unlock()
	e.pipeline.register(m)
}

// ConfigureBatching replaces the scheduler configuration. Pending work
// carries over and flushes under the new options.
func (e *Engine) ConfigureBatching(opts BatchOptions) {
	unlock := e.lock()
	defer unlock()
	opts.applyDefaults()
	e.sched.opts = opts
}

// Freeze marks a namespace prefix read-only. Subsequent Sets at or under
// the prefix fail with ErrAccessDenied. There is no unfreeze.
func (e *Engine) Freeze(prefix string) error {
	unlock := e.lock()
	defer unlock()

	if !validPath(prefix) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, prefix)
	}
	e.frozen = append(e.frozen, prefix)
	return nil
}

// Logger returns the engine's diagnostic logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

func (e *Engine) isFrozen(path string) bool {
	for _, prefix := range e.frozen {
		if hasPrefixPath(path, prefix) {
			return true
		}
	}
	return false
}

// Observe registers a computation and evaluates it immediately, recording
// the paths it reads. On every relevant change the computation re-runs and
// apply (if non-nil) receives the new output for application to the render
// target. A panicking body is isolated: it is reported to the diagnostic
// log and the computation keeps its previous subscriptions and last-good
// value until a future run succeeds.
func (e *Engine) Observe(name string, fn func() any, apply func(any)) *Computation {
	unlock := e.lock()
	defer unlock()

	c := &Computation{
		id:    nextID(),
		name:  name,
		fn:    fn,
		apply: apply,
	}
	e.runComputationLocked(c)
	return c
}

// Dispose tears a computation down: it is removed from every path index
// and dropped from any in-flight candidate set it has not yet executed in.
func (e *Engine) Dispose(c *Computation) {
	if c == nil {
		return
	}
	unlock := e.lock()
	defer unlock()

	c.disposed = true
	e.graph.unsubscribeAll(c)
}

// Batch groups the mutations raised inside fn into a single flush.
// Batches nest; the flush happens when the outermost batch completes.
func (e *Engine) Batch(fn func()) {
	unlock := e.lock()
	defer unlock()

	e.sched.batchDepth++
	defer func() {
		e.sched.batchDepth--
		if e.sched.batchDepth == 0 && !e.sched.flushing {
			e.flushLocked()
		}
	}()
	fn()
}

// Untracked runs fn with dependency tracking suspended: reads inside do
// not subscribe the active computation.
func (e *Engine) Untracked(fn func()) {
	unlock := e.lock()
	defer unlock()

	frames := e.tracker.suspend()
	defer e.tracker.resume(frames)
	fn()
}

// Flush drains the pending batch now. Useful under the deferred policy
// when the caller needs settled output before the scheduled flush.
// Returns ErrBatchDivergence if the round limit was exceeded.
func (e *Engine) Flush() error {
	unlock := e.lock()
	defer unlock()
	return e.flushLocked()
}

// Export returns a deep copy of the entire store. Debugging access to the
// full tree, including component-local namespaces, is deliberate.
func (e *Engine) Export() map[string]any {
	unlock := e.lock()
	defer unlock()
	return e.store.export()
}

// Restore replaces the entire store with a deep copy of m and dirties
// every path so all computations re-evaluate against the new tree.
func (e *Engine) Restore(m map[string]any) error {
	unlock := e.lock()
	defer unlock()

	if e.closed {
		return ErrEngineClosed
	}
	before := e.store.paths()
	e.store.restore(m)
	after := e.store.paths()

	seen := make(map[string]struct{}, len(before)+len(after))
	dirty := make([]string, 0, len(before)+len(after))
	for _, p := range append(before, after...) {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		dirty = append(dirty, p)
	}
	e.scheduleLocked(dirty)
	return nil
}

// Paths returns every path currently present in the store, sorted.
func (e *Engine) Paths() []string {
	unlock := e.lock()
	defer unlock()
	return e.store.paths()
}

// AddObserver registers an observer for engine notifications.
func (e *Engine) AddObserver(o Observer) {
	if o == nil {
		return
	}
	unlock := e.lock()
	defer unlock()
	e.observers = append(e.observers, o)
}

// Close stops the engine: pending work is discarded and subsequent writes
// fail with ErrEngineClosed.
func (e *Engine) Close() {
	unlock := e.lock()
	defer unlock()

	e.closed = true
	e.sched.reset()
	if e.sched.timer != nil {
		e.sched.timer.Stop()
	}
}

// scheduleLocked routes freshly dirtied paths into the scheduler and
// decides whether to flush now, flush early, or arm the deferred timer.
func (e *Engine) scheduleLocked(dirty []string) {
	if len(dirty) == 0 {
		return
	}
	overflow := e.sched.enqueue(dirty)

	if e.sched.flushing {
		// Raised during a flush round: the next round drains it.
		return
	}
	if e.sched.batchDepth > 0 {
		// Flushes when the outermost Batch completes.
		return
	}

	switch {
	case e.sched.opts.Policy == PolicyImmediate:
		e.flushLocked()
	case overflow:
		e.flushLocked()
	default:
		e.armTimerLocked()
	}
}

// armTimerLocked schedules a deferred flush once per batch window.
func (e *Engine) armTimerLocked() {
	if e.sched.timerArmed {
		return
	}
	e.sched.timerArmed = true
	e.sched.timer = time.AfterFunc(e.sched.opts.FlushDelay, func() {
		unlock := e.lock()
		defer unlock()

		e.sched.timerArmed = false
		if e.closed || e.sched.flushing || e.sched.batchDepth > 0 {
			return
		}
		e.flushLocked()
	})
}

// flushLocked atomically snapshots and clears the pending batch, resolves
// the de-duplicated dependent set once per unique path, and re-runs each
// candidate. Mutations raised by a re-run land in a fresh batch drained by
// the next round; rounds never recurse. Exceeding MaxFlushRounds aborts
// the flush, discards pending work, and surfaces ErrBatchDivergence
// through the diagnostic log. The engine stays usable.
func (e *Engine) flushLocked() error {
	if e.sched.flushing || !e.sched.hasPending() {
		return nil
	}
	e.sched.flushing = true
	defer func() { e.sched.flushing = false }()

	start := time.Now()
	for _, o := range e.observers {
		o.FlushStart()
	}

	rounds := 0
	totalRuns := 0
	for e.sched.hasPending() {
		if rounds >= e.sched.opts.MaxFlushRounds {
			e.sched.reset()
			for _, o := range e.observers {
				o.BatchDiverged(rounds)
			}
			e.logger.Error("flush aborted: mutation feedback loop",
				"rounds", rounds, "limit", e.sched.opts.MaxFlushRounds)
			return ErrBatchDivergence
		}
		rounds++

		paths := e.sched.drain()
		for _, c := range e.graph.dependentsOf(paths) {
			if c.disposed {
				continue
			}
			e.runComputationLocked(c)
			totalRuns++
		}
	}

	for _, o := range e.observers {
		o.FlushEnd(rounds, totalRuns, time.Since(start))
	}
	return nil
}

// runComputationLocked evaluates c under a fresh tracking frame and swaps
// its subscription record wholesale on success. A panic discards the
// partial read set, keeping the previous subscriptions and last-good value
// so the graph never ends up half-subscribed.
func (e *Engine) runComputationLocked(c *Computation) {
	token := e.tracker.begin(c)
	started := time.Now()

	var value any
	var cerr *ComputationError
	func() {
		defer func() {
			if r := recover(); r != nil {
				cerr = &ComputationError{Name: c.name, Recovered: r}
			}
		}()
		value = c.fn()
	}()

	reads := e.tracker.end(token)
	if cerr != nil {
		e.logger.Error("computation failed", "computation", c.name, "error", cerr)
		for _, o := range e.observers {
			o.ComputationFailed(c.name, cerr)
		}
		return
	}

	e.graph.replace(c, reads)
	c.lastValue = value
	c.hasValue = true
	c.runs++
	for _, o := range e.observers {
		o.ComputationRan(c.name, time.Since(started))
	}

	if c.apply == nil {
		return
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				err := &ComputationError{Name: c.name, Recovered: r}
				e.logger.Error("apply callback failed", "computation", c.name, "error", err)
				for _, o := range e.observers {
					o.ComputationFailed(c.name, err)
				}
			}
		}()
		c.apply(value)
	}()
}
