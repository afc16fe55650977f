package state

import (
	"reflect"
	"testing"
)

func TestSplitPath(t *testing.T) {
	segs, err := splitPath("user.profile.name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(segs, []string{"user", "profile", "name"}) {
		t.Errorf("unexpected segments: %v", segs)
	}

	if _, err := splitPath(""); err == nil {
		t.Error("empty path should be rejected")
	}
	if _, err := splitPath("a..b"); err == nil {
		t.Error("empty segment should be rejected")
	}
	if _, err := splitPath(".a"); err == nil {
		t.Error("leading dot should be rejected")
	}
	if _, err := splitPath("a."); err == nil {
		t.Error("trailing dot should be rejected")
	}
}

func TestAncestorsOf(t *testing.T) {
	got := ancestorsOf("a.b.c")
	want := []string{"a", "a.b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ancestorsOf(a.b.c) = %v, want %v", got, want)
	}

	if anc := ancestorsOf("root"); len(anc) != 0 {
		t.Errorf("top-level path has no ancestors, got %v", anc)
	}
}

func TestHasPrefixPath(t *testing.T) {
	cases := []struct {
		path, prefix string
		want         bool
	}{
		{"a.b.c", "a", true},
		{"a.b.c", "a.b", true},
		{"a.b.c", "a.b.c", true},
		{"a.bc", "a.b", false},
		{"ab.c", "a", false},
		{"a", "a.b", false},
	}
	for _, c := range cases {
		if got := hasPrefixPath(c.path, c.prefix); got != c.want {
			t.Errorf("hasPrefixPath(%q, %q) = %v, want %v", c.path, c.prefix, got, c.want)
		}
	}
}

func TestJoinPath(t *testing.T) {
	if got := joinPath("a", "b"); got != "a.b" {
		t.Errorf("joinPath(a, b) = %q", got)
	}
	if got := joinPath("", "b"); got != "b" {
		t.Errorf("joinPath(empty, b) = %q", got)
	}
}
