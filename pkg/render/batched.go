package render

import (
	"fmt"

	"github.com/treeline-dev/treeline/pkg/rtree"
)

// batchedStrategy diffs the next tree against the previous one and
// applies the resulting patch list, reusing handles from the type-keyed
// recycle pool for inserts instead of allocating fresh nodes.
type batchedStrategy struct {
	t    Target
	reg  *registry
	pool *Pool
	root NodeHandle
}

func (s *batchedStrategy) Name() string { return "batched" }

func (s *batchedStrategy) Apply(prev, next *rtree.Node) (int, error) {
	patches := rtree.Diff(prev, next)
	for i, p := range patches {
		if err := s.applyPatch(p); err != nil {
			return i, fmt.Errorf("patch %d (%s): %w", i, p.Op, err)
		}
	}
	return len(patches), nil
}

func (s *batchedStrategy) applyPatch(p rtree.Patch) error {
	switch p.Op {
	case rtree.OpSetText:
		entry, ok := s.reg.lookup(p.Ref)
		if !ok {
			return ErrUnknownRef
		}
		return s.t.SetText(entry.handle, p.Value)

	case rtree.OpSetAttr:
		entry, ok := s.reg.lookup(p.Ref)
		if !ok {
			return ErrUnknownRef
		}
		return s.t.SetAttribute(entry.handle, p.Key, p.Value)

	case rtree.OpRemoveAttr:
		entry, ok := s.reg.lookup(p.Ref)
		if !ok {
			return ErrUnknownRef
		}
		return s.t.SetAttribute(entry.handle, p.Key, "")

	case rtree.OpInsert:
		parent, err := s.parentHandle(p.ParentRef)
		if err != nil {
			return err
		}
		rtree.AssignRefs(p.Node)
		_, err = mountSubtree(s.t, s.reg, s.pool, p.Node, parent, p.Index)
		return err

	case rtree.OpRemove:
		return removeSubtree(s.t, s.reg, s.pool, p.Node)

	case rtree.OpMove:
		entry, ok := s.reg.lookup(p.Ref)
		if !ok {
			return ErrUnknownRef
		}
		parent, err := s.parentHandle(p.ParentRef)
		if err != nil {
			return err
		}
		// Inserting an attached node moves it (Target contract).
		return s.t.InsertChild(parent, entry.handle, p.Index)

	case rtree.OpReplace:
		if entry, ok := s.reg.lookup(p.Ref); ok {
			if err := s.t.RemoveNode(entry.handle); err != nil {
				return err
			}
			if s.pool != nil {
				s.pool.Release(entry.typ, entry.handle)
			}
			s.reg.unregister(p.Ref)
		}
		parent, err := s.parentHandle(p.ParentRef)
		if err != nil {
			return err
		}
		rtree.AssignRefs(p.Node)
		_, err = mountSubtree(s.t, s.reg, s.pool, p.Node, parent, p.Index)
		return err

	default:
		return fmt.Errorf("treeline: unsupported patch op %d", p.Op)
	}
}

// parentHandle resolves a parent ref, with "" meaning the mount root.
func (s *batchedStrategy) parentHandle(ref string) (NodeHandle, error) {
	if ref == "" {
		return s.root, nil
	}
	entry, ok := s.reg.lookup(ref)
	if !ok {
		return nil, ErrUnknownRef
	}
	return entry.handle, nil
}
