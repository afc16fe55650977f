package snapshot

import (
	"context"
	"errors"
	"testing"

	"github.com/treeline-dev/treeline/pkg/state"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, "first", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := store.Load(ctx, "first")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("data = %s", data)
	}

	infos, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "first" {
		t.Errorf("infos = %+v", infos)
	}

	if err := store.Delete(ctx, "first"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(ctx, "first"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Deleting an unknown name is a no-op.
	if err := store.Delete(ctx, "first"); err != nil {
		t.Errorf("second delete should be nil, got %v", err)
	}
}

func TestDiskStoreSaveReplaces(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	ctx := context.Background()

	store.Save(ctx, "s", []byte("old"))
	store.Save(ctx, "s", []byte("new"))

	data, err := store.Load(ctx, "s")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(data) != "new" {
		t.Errorf("data = %s", data)
	}
}

func TestDiskStoreRejectsPathNames(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, "../escape", []byte("x")); err == nil {
		t.Error("separator-bearing names must be rejected")
	}
	if err := store.Save(ctx, "", []byte("x")); err == nil {
		t.Error("empty names must be rejected")
	}
}

func TestManagerCaptureRestore(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	ctx := context.Background()

	e := state.New()
	e.Set("user.name", "ada")
	e.Set("count", float64(3))

	m := NewManager(e, store)
	if err := m.Capture(ctx, "checkpoint"); err != nil {
		t.Fatalf("Capture: %v", err)
	}

	e.Set("user.name", "grace")
	e.Set("count", float64(9))

	if err := m.Restore(ctx, "checkpoint"); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if v := e.Get("user.name", ""); v != "ada" {
		t.Errorf("user.name = %v", v)
	}
	if v := e.Get("count", nil); v != float64(3) {
		t.Errorf("count = %v", v)
	}
}

func TestManagerRestoreUnknown(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}

	m := NewManager(state.New(), store)
	if err := m.Restore(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
