package rtree

// Op is the type of patch operation.
type Op uint8

const (
	OpSetText    Op = iota + 1 // Update text content
	OpSetAttr                  // Set/update attribute
	OpRemoveAttr               // Remove attribute
	OpInsert                   // Insert new node
	OpRemove                   // Remove node
	OpMove                     // Move node to new position
	OpReplace                  // Replace node entirely
)

// String returns the string representation of the Op.
func (op Op) String() string {
	switch op {
	case OpSetText:
		return "SetText"
	case OpSetAttr:
		return "SetAttr"
	case OpRemoveAttr:
		return "RemoveAttr"
	case OpInsert:
		return "Insert"
	case OpRemove:
		return "Remove"
	case OpMove:
		return "Move"
	case OpReplace:
		return "Replace"
	default:
		return "Unknown"
	}
}

// Patch is a single render-target operation.
type Patch struct {
	Op        Op
	Ref       string // Target node reference
	Key       string // Attribute key (SetAttr/RemoveAttr)
	Value     string // New value (SetText/SetAttr)
	Node      *Node  // Subtree for Insert/Replace; prior subtree for Remove
	ParentRef string // Parent reference for Insert/Move/Replace
	Index     int    // Position for Insert/Move/Replace
}
