package state

import (
	"sort"
	"strconv"
)

// pathStore is the hierarchical value tree behind the Engine. Values are
// held as nested map[string]any and []any nodes addressed by path segments.
// The store itself is not synchronized; the Engine serializes all access.
type pathStore struct {
	root map[string]any
}

func newPathStore() *pathStore {
	return &pathStore{root: make(map[string]any)}
}

// get walks the tree and returns the value at segs.
func (s *pathStore) get(segs []string) (any, bool) {
	var node any = s.root
	for _, seg := range segs {
		child, ok := childOf(node, seg)
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

// set commits v at segs, creating intermediate maps as needed. It returns
// the prior value (if any) and the set of descendant paths touched by the
// write: every path that existed under the old value plus every path that
// exists under the new one. Replacing a subtree invalidates all of it.
func (s *pathStore) set(path string, segs []string, v any) (old any, hadOld bool, touched []string, err error) {
	parent, err := s.ensureParent(segs)
	if err != nil {
		return nil, false, nil, err
	}

	last := segs[len(segs)-1]
	old, hadOld = childOf(parent, last)

	seen := make(map[string]struct{})
	if hadOld {
		collectChildPaths(path, old, &touched, seen)
	}
	collectChildPaths(path, v, &touched, seen)

	if err := storeChild(parent, last, v); err != nil {
		return nil, false, nil, err
	}
	return old, hadOld, touched, nil
}

// remove deletes the value at segs and returns every removed path,
// the target path first, then its former descendants.
func (s *pathStore) remove(path string, segs []string) []string {
	parent, ok := s.parentOf(segs)
	if !ok {
		return nil
	}
	last := segs[len(segs)-1]
	old, hadOld := childOf(parent, last)
	if !hadOld {
		return nil
	}

	removed := []string{path}
	collectChildPaths(path, old, &removed, map[string]struct{}{path: {}})
	deleteChild(parent, last)
	return removed
}

// has reports whether a value exists at segs.
func (s *pathStore) has(segs []string) bool {
	_, ok := s.get(segs)
	return ok
}

// paths returns every leaf and interior path in the store, sorted.
func (s *pathStore) paths() []string {
	var out []string
	collectChildPaths("", s.root, &out, make(map[string]struct{}))
	sort.Strings(out)
	return out
}

// export returns a deep copy of the whole tree, safe to hand outside the
// engine (serialization, snapshots).
func (s *pathStore) export() map[string]any {
	return deepCopyValue(s.root).(map[string]any)
}

// restore replaces the whole tree with a deep copy of m.
func (s *pathStore) restore(m map[string]any) {
	if m == nil {
		s.root = make(map[string]any)
		return
	}
	s.root = deepCopyValue(m).(map[string]any)
}

// ensureParent walks to the parent node of segs, materializing missing
// intermediate segments as maps. A scalar in the middle of the walk is
// overwritten by a map, consistent with the subtree-replacement rule.
func (s *pathStore) ensureParent(segs []string) (any, error) {
	var node any = s.root
	for i := 0; i < len(segs)-1; i++ {
		seg := segs[i]
		child, ok := childOf(node, seg)
		if !ok || !isContainer(child) {
			child = make(map[string]any)
			if err := storeChild(node, seg, child); err != nil {
				return nil, err
			}
		}
		node = child
	}
	return node, nil
}

// parentOf walks to the parent node of segs without materializing anything.
func (s *pathStore) parentOf(segs []string) (any, bool) {
	var node any = s.root
	for i := 0; i < len(segs)-1; i++ {
		child, ok := childOf(node, segs[i])
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

// childOf resolves one segment against a container node.
func childOf(node any, seg string) (any, bool) {
	switch n := node.(type) {
	case map[string]any:
		v, ok := n[seg]
		return v, ok
	case []any:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= len(n) {
			return nil, false
		}
		return n[idx], true
	default:
		return nil, false
	}
}

// storeChild writes one segment into a container node. Writing past the
// end of a sequence (other than appending at exactly len) is rejected.
func storeChild(node any, seg string, v any) error {
	switch n := node.(type) {
	case map[string]any:
		n[seg] = v
		return nil
	case []any:
		// Sequences are fixed-shape at this layer: writes address existing
		// positions only. Growing a list means replacing it at its own path.
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= len(n) {
			return ErrInvalidPath
		}
		n[idx] = v
		return nil
	default:
		return ErrInvalidPath
	}
}

// deleteChild removes one segment from a container node.
func deleteChild(node any, seg string) {
	switch n := node.(type) {
	case map[string]any:
		delete(n, seg)
	case []any:
		idx, err := strconv.Atoi(seg)
		if err == nil && idx >= 0 && idx < len(n) {
			n[idx] = nil
		}
	}
}

// isContainer reports whether v can hold child paths.
func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}

// collectChildPaths appends every path under prefix reachable inside v.
// Map keys are visited in sorted order so touched-path sets are stable.
func collectChildPaths(prefix string, v any, out *[]string, seen map[string]struct{}) {
	switch n := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p := joinPath(prefix, k)
			if _, dup := seen[p]; !dup {
				seen[p] = struct{}{}
				*out = append(*out, p)
			}
			collectChildPaths(p, n[k], out, seen)
		}
	case []any:
		for i, item := range n {
			p := joinPath(prefix, strconv.Itoa(i))
			if _, dup := seen[p]; !dup {
				seen[p] = struct{}{}
				*out = append(*out, p)
			}
			collectChildPaths(p, item, out, seen)
		}
	}
}

// deepCopyValue clones maps and sequences; scalars pass through.
func deepCopyValue(v any) any {
	switch n := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, item := range n {
			out[k] = deepCopyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, item := range n {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}

// valueChanged implements the commit rule for no-op writes: scalar values
// compare by ==, composite values (maps, sequences, anything else) always
// count as changed. This keeps write cost flat and makes subtree
// replacement renotify unconditionally.
func valueChanged(old, next any) bool {
	switch a := old.(type) {
	case nil:
		return next != nil
	case bool:
		b, ok := next.(bool)
		return !ok || a != b
	case string:
		b, ok := next.(string)
		return !ok || a != b
	case int:
		b, ok := next.(int)
		return !ok || a != b
	case int64:
		b, ok := next.(int64)
		return !ok || a != b
	case uint64:
		b, ok := next.(uint64)
		return !ok || a != b
	case float64:
		b, ok := next.(float64)
		return !ok || a != b
	case float32:
		b, ok := next.(float32)
		return !ok || a != b
	default:
		return true
	}
}
