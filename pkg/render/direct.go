package render

import (
	"github.com/treeline-dev/treeline/pkg/rtree"
)

// directStrategy mutates the render target in place as differences are
// discovered during a synchronized walk of the previous and next trees.
// No intermediate patch list, no recycle pool: minimal latency and the
// safest compatibility, at the cost of positional child matching.
type directStrategy struct {
	t    Target
	reg  *registry
	root NodeHandle
}

func (s *directStrategy) Name() string { return "direct" }

func (s *directStrategy) Apply(prev, next *rtree.Node) (int, error) {
	ops := 0
	err := s.walk(s.root, prev, next, 0, &ops)
	return ops, err
}

// walk reconciles one prev/next pair under parent at index and recurses.
func (s *directStrategy) walk(parent NodeHandle, prev, next *rtree.Node, index int, ops *int) error {
	if prev == nil && next == nil {
		return nil
	}

	if prev == nil {
		rtree.AssignRefs(next)
		n, err := mountSubtree(s.t, s.reg, nil, next, parent, index)
		*ops += n
		return err
	}

	if next == nil {
		*ops++
		return removeSubtree(s.t, s.reg, nil, prev)
	}

	if prev.Kind != next.Kind || (prev.Kind == rtree.KindElement && prev.Tag != next.Tag) {
		if err := removeSubtree(s.t, s.reg, nil, prev); err != nil {
			return err
		}
		rtree.AssignRefs(next)
		n, err := mountSubtree(s.t, s.reg, nil, next, parent, index)
		*ops += n + 1
		return err
	}

	next.Ref = prev.Ref

	switch prev.Kind {
	case rtree.KindText:
		if prev.Text != next.Text {
			entry, ok := s.reg.lookup(prev.Ref)
			if !ok {
				return ErrUnknownRef
			}
			if err := s.t.SetText(entry.handle, next.Text); err != nil {
				return err
			}
			*ops++
		}
		return nil

	case rtree.KindElement:
		entry, ok := s.reg.lookup(prev.Ref)
		if !ok {
			return ErrUnknownRef
		}
		if err := s.syncAttrs(entry.handle, prev, next, ops); err != nil {
			return err
		}
		return s.walkChildren(entry.handle, prev.Children, next.Children, ops)

	case rtree.KindFragment:
		return s.walkChildren(parent, prev.Children, next.Children, ops)
	}
	return nil
}

func (s *directStrategy) syncAttrs(h NodeHandle, prev, next *rtree.Node, ops *int) error {
	for key, prevVal := range prev.Attrs {
		if key == "key" || rtree.IsComputed(prevVal) {
			continue
		}
		nextVal, exists := next.Attrs[key]
		if !exists {
			if err := s.t.SetAttribute(h, key, ""); err != nil {
				return err
			}
			*ops++
		} else if rtree.AttrString(prevVal) != rtree.AttrString(nextVal) {
			if err := s.t.SetAttribute(h, key, rtree.AttrString(nextVal)); err != nil {
				return err
			}
			*ops++
		}
	}
	for key, nextVal := range next.Attrs {
		if key == "key" || rtree.IsComputed(nextVal) {
			continue
		}
		if _, exists := prev.Attrs[key]; !exists {
			if err := s.t.SetAttribute(h, key, rtree.AttrString(nextVal)); err != nil {
				return err
			}
			*ops++
		}
	}
	return nil
}

func (s *directStrategy) walkChildren(parent NodeHandle, prev, next []*rtree.Node, ops *int) error {
	maxLen := len(prev)
	if len(next) > maxLen {
		maxLen = len(next)
	}
	for i := 0; i < maxLen; i++ {
		var prevChild, nextChild *rtree.Node
		if i < len(prev) {
			prevChild = prev[i]
		}
		if i < len(next) {
			nextChild = next[i]
		}
		if err := s.walk(parent, prevChild, nextChild, i, ops); err != nil {
			return err
		}
	}
	return nil
}
