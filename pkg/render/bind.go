package render

import (
	"github.com/treeline-dev/treeline/pkg/rtree"
	"github.com/treeline-dev/treeline/pkg/state"
)

// Bind wires a build function to a reconciler through the engine's
// dependency tracking. The build function runs immediately and again
// whenever a path it read changes; each run's tree is handed to
// rec.Render. The returned computation can be disposed to stop updates.
func Bind(e *state.Engine, rec *Reconciler, name string, build func() *rtree.Node) *state.Computation {
	return e.Observe(name, func() any {
		return build()
	}, func(v any) {
		tree, _ := v.(*rtree.Node)
		if err := rec.Render(tree); err != nil {
			e.Logger().Error("render failed", "computation", name, "error", err)
		}
	})
}
