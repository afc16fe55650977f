package render

import (
	"github.com/treeline-dev/treeline/pkg/rtree"
)

// Strategy applies the difference between two trees to the target.
// Implementations report how many target operations they performed.
type Strategy interface {
	Name() string
	Apply(prev, next *rtree.Node) (ops int, err error)
}

// mountSubtree creates target nodes for n and inserts them under parent
// starting at index. Fragments contribute their children directly and may
// insert more than one node; the return value is the number of nodes
// inserted at this level. When pool is non-nil, handles are acquired from
// it before falling back to CreateNode. Refs must be assigned before
// mounting.
func mountSubtree(t Target, reg *registry, pool *Pool, n *rtree.Node, parent NodeHandle, index int) (int, error) {
	if n == nil {
		return 0, nil
	}

	switch n.Kind {
	case rtree.KindFragment:
		inserted := 0
		for _, c := range n.Children {
			k, err := mountSubtree(t, reg, pool, c, parent, index+inserted)
			if err != nil {
				return inserted, err
			}
			inserted += k
		}
		return inserted, nil

	case rtree.KindText:
		h, err := acquireNode(t, pool, TextNodeType)
		if err != nil {
			return 0, err
		}
		if err := t.SetText(h, n.Text); err != nil {
			return 0, err
		}
		if err := t.InsertChild(parent, h, index); err != nil {
			return 0, err
		}
		reg.register(n.Ref, TextNodeType, h)
		return 1, nil

	case rtree.KindElement:
		h, err := acquireNode(t, pool, n.Tag)
		if err != nil {
			return 0, err
		}
		for key, v := range n.Attrs {
			if key == "key" || rtree.IsComputed(v) {
				continue
			}
			if err := t.SetAttribute(h, key, rtree.AttrString(v)); err != nil {
				return 0, err
			}
		}
		if err := t.InsertChild(parent, h, index); err != nil {
			return 0, err
		}
		reg.register(n.Ref, n.Tag, h)

		childIdx := 0
		for _, c := range n.Children {
			k, err := mountSubtree(t, reg, pool, c, h, childIdx)
			if err != nil {
				return 1, err
			}
			childIdx += k
		}
		return 1, nil
	}
	return 0, nil
}

// removeSubtree detaches a mounted subtree and parks its handles in the
// pool (when one is in use).
func removeSubtree(t Target, reg *registry, pool *Pool, n *rtree.Node) error {
	if n == nil {
		return nil
	}
	if n.Kind == rtree.KindFragment {
		for _, c := range n.Children {
			if err := removeSubtree(t, reg, pool, c); err != nil {
				return err
			}
		}
		return nil
	}

	entry, ok := reg.lookup(n.Ref)
	if !ok {
		return nil
	}
	if err := t.RemoveNode(entry.handle); err != nil {
		return err
	}
	recycleHandles(reg, pool, n)
	return nil
}

// recycleHandles unregisters every ref in a detached subtree, releasing
// the handles into the pool.
func recycleHandles(reg *registry, pool *Pool, n *rtree.Node) {
	if n == nil {
		return
	}
	if entry, ok := reg.lookup(n.Ref); ok {
		if pool != nil {
			pool.Release(entry.typ, entry.handle)
		}
		reg.unregister(n.Ref)
	}
	for _, c := range n.Children {
		recycleHandles(reg, pool, c)
	}
}

func acquireNode(t Target, pool *Pool, typ string) (NodeHandle, error) {
	if pool != nil {
		if h, ok := pool.Acquire(typ); ok {
			return h, nil
		}
	}
	return t.CreateNode(typ)
}
