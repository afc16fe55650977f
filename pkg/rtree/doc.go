// Package rtree defines the declarative object tree produced by
// computations and the diff that turns two trees into a minimal patch
// list for the render reconciler.
//
// Nodes are plain data: a kind, a tag or text, attributes, children, and
// an optional reconciliation key. Keyed children are matched by explicit
// key first; unkeyed children in a keyed list fall back to a structural
// key derived from the tag and a stable hash of their static attributes,
// so items with identical static shape are reorderable and reusable.
package rtree
