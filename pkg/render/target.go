package render

import (
	"errors"

	"github.com/treeline-dev/treeline/pkg/rtree"
)

// NodeHandle is an opaque reference to a node owned by the render target.
type NodeHandle any

// TextNodeType is the node type passed to CreateNode for text nodes.
const TextNodeType = "#text"

// Target is the adapter the host environment implements over its real
// node tree (a DOM bridge, a terminal grid, a scene graph).
//
// Contract notes:
//   - InsertChild with a child that is already attached moves it to the
//     new position; this is how Move patches are applied.
//   - SetAttribute with an empty value clears the attribute.
//   - Handles returned by CreateNode stay valid until RemoveNode.
type Target interface {
	// CreateNode allocates a node of the given type.
	CreateNode(typ string) (NodeHandle, error)

	// SetAttribute sets or clears (empty value) an attribute.
	SetAttribute(n NodeHandle, key, value string) error

	// SetText replaces a text node's content.
	SetText(n NodeHandle, text string) error

	// InsertChild places child under parent at index.
	InsertChild(parent, child NodeHandle, index int) error

	// RemoveNode detaches a node and its subtree.
	RemoveNode(n NodeHandle) error
}

// ErrUnknownRef is returned when a patch targets a reference the
// reconciler has no handle for, usually a sign the previous tree and the
// target diverged.
var ErrUnknownRef = errors.New("treeline: unknown target reference")

// registry maps tree references to live target handles. Maintained by
// the reconciler as subtrees mount and unmount.
type registry struct {
	entries map[string]regEntry
}

type regEntry struct {
	handle NodeHandle
	typ    string
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]regEntry)}
}

func (r *registry) register(ref, typ string, h NodeHandle) {
	r.entries[ref] = regEntry{handle: h, typ: typ}
}

func (r *registry) lookup(ref string) (regEntry, bool) {
	e, ok := r.entries[ref]
	return e, ok
}

func (r *registry) unregister(ref string) {
	delete(r.entries, ref)
}

// pruneTo drops every entry whose ref is not in live, reclaiming entries
// for subtrees replaced or removed during the last apply.
func (r *registry) pruneTo(live map[string]struct{}) {
	for ref := range r.entries {
		if _, ok := live[ref]; !ok {
			delete(r.entries, ref)
		}
	}
}

// liveRefs collects every ref present in a tree.
func liveRefs(n *rtree.Node, out map[string]struct{}) {
	if n == nil {
		return
	}
	if n.Ref != "" {
		out[n.Ref] = struct{}{}
	}
	for _, c := range n.Children {
		liveRefs(c, out)
	}
}
