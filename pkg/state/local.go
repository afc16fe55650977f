package state

import (
	"fmt"
	"sync"
)

// LocalPrefix is the reserved top-level namespace for component-local
// state. Each live component instance owns a private sub-tree
// "__local.<TypeName>_<N>" for its lifetime; no other instance reads or
// writes it directly.
const LocalPrefix = "__local"

// DeclareLocal declares a component-local value under the instance
// namespace. On the first call for a given (namespace, key) the store is
// seeded with initial; later calls reuse the existing value. The returned
// getter reads through Engine.Get, so it is tracked like any other path;
// the setter writes through Engine.Set and follows the full middleware
// and scheduling pipeline.
//
// Namespace allocation is the component system's responsibility; it only
// needs to be unique and stable for the instance's lifetime. NextInstance
// produces suitable names.
func (e *Engine) DeclareLocal(namespace, key string, initial any) (func() any, func(any) error) {
	unlock := e.lock()
	defer unlock()

	path := joinPath(joinPath(LocalPrefix, namespace), key)
	if segs, err := splitPath(path); err == nil {
		if !e.store.has(segs) {
			// Seeding bypasses middleware and notification: nothing can be
			// subscribed to a namespace that is still mounting.
			_, _, _, _ = e.store.set(path, segs, initial)
		}
	}

	getter := func() any { return e.Get(path, nil) }
	setter := func(v any) error { return e.Set(path, v) }
	return getter, setter
}

// TeardownNamespace removes every path under the instance namespace,
// drops those paths from the pending batch so no queued re-run observes a
// torn-down namespace, and removes their subscriptions from the graph.
func (e *Engine) TeardownNamespace(namespace string) {
	unlock := e.lock()
	defer unlock()

	prefix := joinPath(LocalPrefix, namespace)
	segs, err := splitPath(prefix)
	if err != nil {
		return
	}
	for _, p := range e.store.remove(prefix, segs) {
		e.sched.dropPending(p)
		e.graph.dropPath(p)
	}
}

var (
	instanceMu       sync.Mutex
	instanceCounters = make(map[string]int)
)

// NextInstance allocates a stable instance namespace for a component
// type: "Counter" yields "Counter_1", "Counter_2", and so on. Counters
// are per type and never reused.
func NextInstance(typeName string) string {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instanceCounters[typeName]++
	return fmt.Sprintf("%s_%d", typeName, instanceCounters[typeName])
}
