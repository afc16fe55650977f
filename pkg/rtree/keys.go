package rtree

import (
	"fmt"
	"hash/fnv"
	"reflect"
	"sort"
	"strconv"
)

// ResolveKey returns the reconciliation key for a node. An explicit key
// always wins; otherwise a structural key is derived deterministically
// from the tag plus a stable hash of the static attributes, so unkeyed
// items with identical static shape are treated as reorderable and items
// with differing shape as distinct. Text and fragment nodes have no key.
func ResolveKey(n *Node) string {
	if n == nil {
		return ""
	}
	if n.Key != "" {
		return n.Key
	}
	if n.Kind != KindElement {
		return ""
	}
	return structuralKey(n)
}

// structuralKey hashes the tag and the sorted static attributes.
// Attributes holding functions are per-render computed values and are
// excluded so the key stays stable across runs.
func structuralKey(n *Node) string {
	h := fnv.New64a()
	h.Write([]byte(n.Tag))

	keys := make([]string, 0, len(n.Attrs))
	for k, v := range n.Attrs {
		if IsComputed(v) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write([]byte(AttrString(n.Attrs[k])))
	}
	return "s:" + strconv.FormatUint(h.Sum64(), 16)
}

// IsComputed reports whether an attribute value is a computed property.
func IsComputed(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Func
}

// AttrString converts an attribute value to its patch/string form.
func AttrString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
