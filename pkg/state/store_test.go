package state

import (
	"reflect"
	"sort"
	"testing"
)

func mustSet(t *testing.T, s *pathStore, path string, v any) []string {
	t.Helper()
	segs, err := splitPath(path)
	if err != nil {
		t.Fatalf("splitPath(%q): %v", path, err)
	}
	_, _, touched, err := s.set(path, segs, v)
	if err != nil {
		t.Fatalf("set(%q): %v", path, err)
	}
	return touched
}

func storeGet(t *testing.T, s *pathStore, path string) (any, bool) {
	t.Helper()
	segs, err := splitPath(path)
	if err != nil {
		t.Fatalf("splitPath(%q): %v", path, err)
	}
	return s.get(segs)
}

func TestStoreSetGet(t *testing.T) {
	s := newPathStore()

	mustSet(t, s, "user.profile.name", "ada")
	v, ok := storeGet(t, s, "user.profile.name")
	if !ok || v != "ada" {
		t.Errorf("expected ada, got %v (ok=%v)", v, ok)
	}

	// Interior nodes materialize as maps.
	v, ok = storeGet(t, s, "user.profile")
	if !ok {
		t.Fatal("interior node should exist")
	}
	if _, isMap := v.(map[string]any); !isMap {
		t.Errorf("interior node should be a map, got %T", v)
	}
}

func TestStoreScalarOverwrittenByTree(t *testing.T) {
	s := newPathStore()

	mustSet(t, s, "a", 1)
	mustSet(t, s, "a.b", 2)

	v, ok := storeGet(t, s, "a.b")
	if !ok || v != 2 {
		t.Errorf("expected 2 at a.b, got %v", v)
	}
}

func TestStoreTouchedPathsOnSubtreeReplace(t *testing.T) {
	s := newPathStore()

	mustSet(t, s, "user", map[string]any{
		"name": "ada",
		"tags": []any{"x", "y"},
	})

	// Replacing the subtree dirties old descendants and new ones.
	touched := mustSet(t, s, "user", map[string]any{"email": "a@b"})

	sort.Strings(touched)
	want := []string{"user.email", "user.name", "user.tags", "user.tags.0", "user.tags.1"}
	if !reflect.DeepEqual(touched, want) {
		t.Errorf("touched = %v, want %v", touched, want)
	}
}

func TestStoreSequenceWrites(t *testing.T) {
	s := newPathStore()

	mustSet(t, s, "list", []any{1, 2, 3})
	mustSet(t, s, "list.1", 20)

	v, _ := storeGet(t, s, "list.1")
	if v != 20 {
		t.Errorf("expected 20 at list.1, got %v", v)
	}

	// Writing past the end is rejected; grow by replacing the list.
	segs, _ := splitPath("list.5")
	if _, _, _, err := s.set("list.5", segs, 50); err == nil {
		t.Error("out-of-range sequence write should fail")
	}
}

func TestStoreRemove(t *testing.T) {
	s := newPathStore()

	mustSet(t, s, "a.b.c", 1)
	mustSet(t, s, "a.b.d", 2)

	segs, _ := splitPath("a.b")
	removed := s.remove("a.b", segs)
	if removed[0] != "a.b" {
		t.Errorf("target path should come first, got %v", removed)
	}
	sort.Strings(removed)
	want := []string{"a.b", "a.b.c", "a.b.d"}
	if !reflect.DeepEqual(removed, want) {
		t.Errorf("removed = %v, want %v", removed, want)
	}

	if _, ok := storeGet(t, s, "a.b.c"); ok {
		t.Error("a.b.c should be gone")
	}

	// Removing a missing path is a no-op.
	if got := s.remove("a.b", segs); got != nil {
		t.Errorf("second remove should return nil, got %v", got)
	}
}

func TestStoreExportIsDeepCopy(t *testing.T) {
	s := newPathStore()
	mustSet(t, s, "conf.limits", map[string]any{"max": 10})

	snapshot := s.export()
	snapshot["conf"].(map[string]any)["limits"].(map[string]any)["max"] = 99

	v, _ := storeGet(t, s, "conf.limits.max")
	if v != 10 {
		t.Errorf("mutating the export must not touch the store, got %v", v)
	}
}

func TestStoreRestore(t *testing.T) {
	s := newPathStore()
	mustSet(t, s, "old.value", 1)

	src := map[string]any{"fresh": map[string]any{"value": 2}}
	s.restore(src)

	if _, ok := storeGet(t, s, "old.value"); ok {
		t.Error("restore should replace the whole tree")
	}
	v, _ := storeGet(t, s, "fresh.value")
	if v != 2 {
		t.Errorf("expected 2, got %v", v)
	}

	// Restore takes a deep copy of its input.
	src["fresh"].(map[string]any)["value"] = 3
	v, _ = storeGet(t, s, "fresh.value")
	if v != 2 {
		t.Errorf("restore must deep-copy its input, got %v", v)
	}
}

func TestValueChanged(t *testing.T) {
	cases := []struct {
		old, next any
		want      bool
	}{
		{1, 1, false},
		{1, 2, true},
		{"a", "a", false},
		{"a", "b", true},
		{true, true, false},
		{1.5, 1.5, false},
		{nil, nil, false},
		{nil, 1, true},
		{1, "1", true},
		// Composite values always count as changed.
		{map[string]any{"a": 1}, map[string]any{"a": 1}, true},
		{[]any{1}, []any{1}, true},
	}
	for _, c := range cases {
		if got := valueChanged(c.old, c.next); got != c.want {
			t.Errorf("valueChanged(%v, %v) = %v, want %v", c.old, c.next, got, c.want)
		}
	}
}
