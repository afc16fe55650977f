package state

import "strings"

// splitPath validates a dot-delimited path and returns its segments.
// A path is valid when it is non-empty and every segment between dots is
// non-empty. Segments are otherwise opaque: object keys or array indices
// rendered as strings.
func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}
	segs := strings.Split(path, ".")
	for _, s := range segs {
		if s == "" {
			return nil, ErrInvalidPath
		}
	}
	return segs, nil
}

// validPath reports whether path parses cleanly.
func validPath(path string) bool {
	_, err := splitPath(path)
	return err == nil
}

// joinPath concatenates two path fragments.
func joinPath(prefix, rest string) string {
	if prefix == "" {
		return rest
	}
	if rest == "" {
		return prefix
	}
	return prefix + "." + rest
}

// ancestorsOf returns every proper ancestor of path, outermost first.
// ancestorsOf("a.b.c") = ["a", "a.b"]. A single-segment path has none.
func ancestorsOf(path string) []string {
	var out []string
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			out = append(out, path[:i])
		}
	}
	return out
}

// hasPrefixPath reports whether path equals prefix or lies underneath it.
// Segment-aware: "a.bc" is not under "a.b".
func hasPrefixPath(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return len(path) > len(prefix) &&
		strings.HasPrefix(path, prefix) &&
		path[len(prefix)] == '.'
}
