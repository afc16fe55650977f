package rtree

// Diff compares two trees and returns the patches needed to transform
// prev into next. Refs are copied from prev to next for surviving nodes;
// inserted subtrees receive refs when the reconciler mounts them.
func Diff(prev, next *Node) []Patch {
	var patches []Patch
	diff(prev, next, "", 0, &patches)
	return patches
}

// diff recursively compares nodes and appends patches. parentRef and
// index locate the node inside its parent for insert/replace operations.
func diff(prev, next *Node, parentRef string, index int, patches *[]Patch) {
	if prev == nil && next == nil {
		return
	}

	if prev == nil {
		*patches = append(*patches, Patch{
			Op:        OpInsert,
			ParentRef: parentRef,
			Index:     index,
			Node:      next,
		})
		return
	}

	if next == nil {
		*patches = append(*patches, Patch{
			Op:   OpRemove,
			Ref:  prev.Ref,
			Node: prev,
		})
		return
	}

	if prev.Kind != next.Kind {
		*patches = append(*patches, Patch{
			Op:        OpReplace,
			Ref:       prev.Ref,
			Node:      next,
			ParentRef: parentRef,
			Index:     index,
		})
		return
	}

	switch prev.Kind {
	case KindText:
		diffText(prev, next, patches)
	case KindElement:
		diffElement(prev, next, parentRef, index, patches)
	case KindFragment:
		next.Ref = prev.Ref
		diffChildren(prev, next, parentRef, patches)
	}
}

func diffText(prev, next *Node, patches *[]Patch) {
	next.Ref = prev.Ref
	if prev.Text != next.Text {
		*patches = append(*patches, Patch{
			Op:    OpSetText,
			Ref:   prev.Ref,
			Value: next.Text,
		})
	}
}

func diffElement(prev, next *Node, parentRef string, index int, patches *[]Patch) {
	if prev.Tag != next.Tag {
		*patches = append(*patches, Patch{
			Op:        OpReplace,
			Ref:       prev.Ref,
			Node:      next,
			ParentRef: parentRef,
			Index:     index,
		})
		return
	}

	next.Ref = prev.Ref
	diffAttrs(prev, next, patches)
	diffChildren(prev, next, prev.Ref, patches)
}

// diffAttrs compares and patches attributes. Computed (function-valued)
// attributes are resolved upstream by the tree builder and skipped here;
// "key" is reconciliation metadata, not a real attribute.
func diffAttrs(prev, next *Node, patches *[]Patch) {
	for key, prevVal := range prev.Attrs {
		if key == "key" || IsComputed(prevVal) {
			continue
		}
		nextVal, exists := next.Attrs[key]
		if !exists {
			*patches = append(*patches, Patch{
				Op:  OpRemoveAttr,
				Ref: prev.Ref,
				Key: key,
			})
		} else if AttrString(prevVal) != AttrString(nextVal) {
			*patches = append(*patches, Patch{
				Op:    OpSetAttr,
				Ref:   prev.Ref,
				Key:   key,
				Value: AttrString(nextVal),
			})
		}
	}

	for key, nextVal := range next.Attrs {
		if key == "key" || IsComputed(nextVal) {
			continue
		}
		if _, exists := prev.Attrs[key]; !exists {
			*patches = append(*patches, Patch{
				Op:    OpSetAttr,
				Ref:   prev.Ref,
				Key:   key,
				Value: AttrString(nextVal),
			})
		}
	}
}

func diffChildren(prev, next *Node, parentRef string, patches *[]Patch) {
	if hasKeyedChildren(prev.Children) || hasKeyedChildren(next.Children) {
		diffKeyedChildren(prev.Children, next.Children, parentRef, patches)
	} else {
		diffUnkeyedChildren(prev.Children, next.Children, parentRef, patches)
	}
}

// diffUnkeyedChildren matches children positionally.
func diffUnkeyedChildren(prev, next []*Node, parentRef string, patches *[]Patch) {
	maxLen := len(prev)
	if len(next) > maxLen {
		maxLen = len(next)
	}

	for i := 0; i < maxLen; i++ {
		var prevChild, nextChild *Node
		if i < len(prev) {
			prevChild = prev[i]
		}
		if i < len(next) {
			nextChild = next[i]
		}
		diff(prevChild, nextChild, parentRef, i, patches)
	}
}

// diffKeyedChildren matches children by resolved key for efficient
// reordering. Structural keys may repeat (identical unkeyed items), so
// candidates are consumed in order per key.
//
// Patches are ordered removals, then placements, and move decisions are
// made against a working copy of the live child list: an earlier move or
// insert shifts the positions of later children, so comparing raw prev
// and next indices would skip moves that are still required.
func diffKeyedChildren(prev, next []*Node, parentRef string, patches *[]Patch) {
	prevByKey := make(map[string][]int)
	for i, child := range prev {
		key := ResolveKey(child)
		prevByKey[key] = append(prevByKey[key], i)
	}

	// Match every next child to a surviving prev child up front.
	matchFor := make([]int, len(next))
	matched := make(map[int]bool)
	for nextIdx, nextChild := range next {
		key := ResolveKey(nextChild)
		queue := prevByKey[key]
		if len(queue) == 0 {
			matchFor[nextIdx] = -1
			continue
		}
		prevIdx := queue[0]
		prevByKey[key] = queue[1:]
		matchFor[nextIdx] = prevIdx
		matched[prevIdx] = true
	}

	// Remove unmatched children first; working then mirrors the live
	// list, holding the surviving prev indices in their current order.
	working := make([]int, 0, len(prev))
	for i, prevChild := range prev {
		if matched[i] {
			working = append(working, i)
			continue
		}
		*patches = append(*patches, Patch{
			Op:   OpRemove,
			Ref:  prevChild.Ref,
			Node: prevChild,
		})
	}

	for nextIdx, nextChild := range next {
		prevIdx := matchFor[nextIdx]
		if prevIdx < 0 {
			*patches = append(*patches, Patch{
				Op:        OpInsert,
				ParentRef: parentRef,
				Index:     nextIdx,
				Node:      nextChild,
			})
			working = append(working, 0)
			copy(working[nextIdx+1:], working[nextIdx:])
			working[nextIdx] = -1
			continue
		}

		// Positions before nextIdx are already settled, so the match
		// sits at or after nextIdx in the working list.
		cur := nextIdx
		for working[cur] != prevIdx {
			cur++
		}
		if cur != nextIdx {
			*patches = append(*patches, Patch{
				Op:        OpMove,
				Ref:       prev[prevIdx].Ref,
				ParentRef: parentRef,
				Index:     nextIdx,
			})
			copy(working[nextIdx+1:cur+1], working[nextIdx:cur])
			working[nextIdx] = prevIdx
		}
		diff(prev[prevIdx], nextChild, parentRef, nextIdx, patches)
	}
}

// hasKeyedChildren reports whether any child resolves to a key, explicit
// or structural. Pure text/fragment lists stay in positional mode.
func hasKeyedChildren(children []*Node) bool {
	for _, child := range children {
		if ResolveKey(child) != "" {
			return true
		}
	}
	return false
}
