package rtree

import (
	"strconv"
	"sync/atomic"
)

// Kind is the node type discriminator.
type Kind uint8

const (
	KindElement  Kind = iota // Typed render-target node ("div", "row", ...)
	KindText                 // Plain text node
	KindFragment             // Grouping without a wrapper node
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	default:
		return "Unknown"
	}
}

// Attrs holds a node's attributes.
type Attrs map[string]any

// Node is one node of the declarative object tree.
type Node struct {
	Kind     Kind
	Tag      string  // Element type name
	Attrs    Attrs   // Attributes
	Children []*Node // Child nodes
	Key      string  // Explicit reconciliation key
	Text     string  // For KindText
	Ref      string  // Target reference, assigned at mount
}

// El creates an element node.
func El(tag string, attrs Attrs, children ...*Node) *Node {
	return &Node{Kind: KindElement, Tag: tag, Attrs: attrs, Children: children}
}

// Text creates a text node.
func Text(s string) *Node {
	return &Node{Kind: KindText, Text: s}
}

// Fragment groups children without a wrapper node.
func Fragment(children ...*Node) *Node {
	return &Node{Kind: KindFragment, Children: children}
}

// WithKey sets the explicit reconciliation key.
func (n *Node) WithKey(key string) *Node {
	n.Key = key
	return n
}

// refCounter is the source of target references assigned at mount.
var refCounter uint64

// AssignRefs walks the tree and gives every node lacking a Ref a fresh
// one. Called when a subtree is first mounted; diff copies refs from the
// previous tree for nodes that survive.
func AssignRefs(n *Node) {
	if n == nil {
		return
	}
	if n.Ref == "" {
		n.Ref = nextRef()
	}
	for _, c := range n.Children {
		AssignRefs(c)
	}
}

func nextRef() string {
	return "n" + strconv.FormatUint(atomic.AddUint64(&refCounter, 1), 10)
}
