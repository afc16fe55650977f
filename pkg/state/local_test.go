package state

import (
	"strings"
	"testing"
)

func TestDeclareLocalSeeding(t *testing.T) {
	e := New()

	get, set := e.DeclareLocal("Counter_1", "count", 0)
	if v := get(); v != 0 {
		t.Errorf("expected seeded 0, got %v", v)
	}

	if err := set(5); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v := get(); v != 5 {
		t.Errorf("expected 5, got %v", v)
	}

	// Re-declaring reuses the existing value instead of re-seeding.
	get2, _ := e.DeclareLocal("Counter_1", "count", 0)
	if v := get2(); v != 5 {
		t.Errorf("second declaration must not reset, got %v", v)
	}
}

func TestDeclareLocalSeedBypassesMiddleware(t *testing.T) {
	e := New()

	e.RegisterMiddleware(func(path string, old, next any, mc *MutationContext) (any, error) {
		return nil, ErrMutationVetoed
	})

	get, set := e.DeclareLocal("Widget_1", "v", "seeded")
	if v := get(); v != "seeded" {
		t.Errorf("seeding must bypass middleware, got %v", v)
	}

	// The setter goes through the full pipeline.
	set("updated")
	if v := get(); v != "seeded" {
		t.Errorf("setter should be vetoed, got %v", v)
	}
}

func TestLocalNamespaceIsolation(t *testing.T) {
	e := New()

	_, set1 := e.DeclareLocal("Counter_1", "count", 0)
	get2, _ := e.DeclareLocal("Counter_2", "count", 0)

	set1(10)
	if v := get2(); v != 0 {
		t.Errorf("instances must not share state, got %v", v)
	}
}

func TestLocalStateIsTracked(t *testing.T) {
	e := New()

	get, set := e.DeclareLocal("Counter_1", "count", 0)

	runs := 0
	e.Observe("view", func() any {
		runs++
		return get()
	}, nil)

	set(1)
	if runs != 2 {
		t.Errorf("local reads should subscribe like any path, ran %d times", runs)
	}
}

func TestTeardownNamespace(t *testing.T) {
	e := New()

	get, _ := e.DeclareLocal("Counter_1", "count", 7)
	keepGet, _ := e.DeclareLocal("Counter_2", "count", 3)

	e.TeardownNamespace("Counter_1")

	if v := get(); v != nil {
		t.Errorf("torn-down namespace should read absent, got %v", v)
	}
	if v := keepGet(); v != 3 {
		t.Errorf("other namespaces must be untouched, got %v", v)
	}

	// The whole subtree is gone from the store.
	for _, p := range e.Paths() {
		if strings.HasPrefix(p, "__local.Counter_1") {
			t.Errorf("path %q should have been removed", p)
		}
	}
}

func TestTeardownDropsPendingNotifications(t *testing.T) {
	e := New(WithBatchOptions(BatchOptions{
		Policy:     PolicyDeferred,
		FlushDelay: 0,
	}))

	get, set := e.DeclareLocal("Counter_1", "count", 0)

	runs := 0
	e.Observe("view", func() any {
		runs++
		return get()
	}, nil)

	e.Batch(func() {
		set(1)
		e.TeardownNamespace("Counter_1")
	})

	// The queued re-run for the torn-down path was dropped with it.
	if runs != 1 {
		t.Errorf("no re-run should fire for a torn-down namespace, ran %d times", runs)
	}
}

func TestNextInstance(t *testing.T) {
	a := NextInstance("Widget")
	b := NextInstance("Widget")

	if a == b {
		t.Errorf("instance namespaces must be unique, got %q twice", a)
	}
	if !strings.HasPrefix(a, "Widget_") {
		t.Errorf("unexpected namespace format %q", a)
	}
}

// Counter models the canonical component lifecycle: declare, render,
// mutate, tear down.
func TestComponentLifecycle(t *testing.T) {
	e := New()

	ns := NextInstance("Counter")
	getCount, setCount := e.DeclareLocal(ns, "count", 0)

	var rendered any
	c := e.Observe(ns+".view", func() any {
		return getCount()
	}, func(v any) {
		rendered = v
	})

	setCount(1)
	setCount(2)
	if rendered != 2 {
		t.Errorf("view should track local state, rendered %v", rendered)
	}

	e.Dispose(c)
	e.TeardownNamespace(ns)

	setCount(3)
	if rendered != 2 {
		t.Errorf("disposed view must not update, rendered %v", rendered)
	}
}
