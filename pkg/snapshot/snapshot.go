package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/treeline-dev/treeline/pkg/state"
)

// ErrNotFound is returned when a snapshot name does not exist in a store.
var ErrNotFound = errors.New("treeline: snapshot not found")

// Info describes a stored snapshot.
type Info struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists opaque snapshot payloads by name.
type Store interface {
	// Save writes a snapshot, replacing any previous one with the same name.
	Save(ctx context.Context, name string, data []byte) error

	// Load reads a snapshot. Returns ErrNotFound for unknown names.
	Load(ctx context.Context, name string) ([]byte, error)

	// List enumerates stored snapshots, newest first.
	List(ctx context.Context) ([]Info, error)

	// Delete removes a snapshot. Deleting an unknown name is not an error.
	Delete(ctx context.Context, name string) error
}

// envelope is the serialized snapshot format.
type envelope struct {
	Version   int            `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	Values    map[string]any `json:"values"`
}

const envelopeVersion = 1

// Manager captures engine state into a Store and restores it back.
type Manager struct {
	engine *state.Engine
	store  Store
}

// NewManager creates a snapshot manager for e backed by store.
func NewManager(e *state.Engine, store Store) *Manager {
	return &Manager{engine: e, store: store}
}

// Capture serializes the engine's current values and saves them under name.
func (m *Manager) Capture(ctx context.Context, name string) error {
	env := envelope{
		Version:   envelopeVersion,
		CreatedAt: time.Now().UTC(),
		Values:    m.engine.Export(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return m.store.Save(ctx, name, data)
}

// Restore loads the named snapshot and replaces the engine's values with
// it. Computations re-run against the restored state.
func (m *Manager) Restore(ctx context.Context, name string) error {
	data, err := m.store.Load(ctx, name)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if env.Version != envelopeVersion {
		return fmt.Errorf("treeline: unsupported snapshot version %d", env.Version)
	}
	return m.engine.Restore(env.Values)
}

// List enumerates the snapshots in the backing store.
func (m *Manager) List(ctx context.Context) ([]Info, error) {
	return m.store.List(ctx)
}

// Delete removes the named snapshot.
func (m *Manager) Delete(ctx context.Context, name string) error {
	return m.store.Delete(ctx, name)
}
