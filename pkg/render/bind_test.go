package render

import (
	"fmt"
	"testing"

	"github.com/treeline-dev/treeline/pkg/rtree"
	"github.com/treeline-dev/treeline/pkg/state"
)

func TestBindRendersOnStateChange(t *testing.T) {
	e := state.New()
	e.Set("todo.items", []any{"write", "ship"})

	target := newFakeTarget()
	rec := NewReconciler(target, target.root)

	c := Bind(e, rec, "todo.view", func() *rtree.Node {
		items, _ := e.Get("todo.items", []any{}).([]any)
		children := make([]*rtree.Node, 0, len(items))
		for i, item := range items {
			children = append(children, rtree.El("li", rtree.Attrs{"slot": i},
				rtree.Text(fmt.Sprintf("%v", item)),
			))
		}
		return rtree.El("ul", nil, children...)
	})
	defer e.Dispose(c)

	// The initial run mounts immediately.
	if got := renderText(target.root); got != "writeship" {
		t.Fatalf("initial render = %q", got)
	}

	// Replacing the list re-renders through the reactive graph.
	e.Set("todo.items", []any{"write", "ship", "rest"})
	if got := renderText(target.root); got != "writeshiprest" {
		t.Errorf("after update = %q", got)
	}

	e.Dispose(c)
	e.Set("todo.items", []any{"gone"})
	if got := renderText(target.root); got != "writeshiprest" {
		t.Errorf("disposed binding must not render, got %q", got)
	}
}

func TestBindBatchCoalescesRenders(t *testing.T) {
	e := state.New()
	e.Set("a", 1)
	e.Set("b", 2)

	target := newFakeTarget()
	obs := &fallbackObserver{}
	rec := NewReconciler(target, target.root, WithRenderObserver(obs))

	Bind(e, rec, "sum.view", func() *rtree.Node {
		sum := e.Get("a", 0).(int) + e.Get("b", 0).(int)
		return rtree.El("div", nil, rtree.Text(fmt.Sprintf("%d", sum)))
	})

	passes := len(obs.applied)
	e.Batch(func() {
		e.Set("a", 10)
		e.Set("b", 20)
	})

	if got := len(obs.applied) - passes; got != 1 {
		t.Errorf("batch should produce one render pass, got %d", got)
	}
	if got := renderText(target.root); got != "30" {
		t.Errorf("rendered = %q", got)
	}
}
