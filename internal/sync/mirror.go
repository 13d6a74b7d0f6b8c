// Package sync keeps in-memory mirrors of the store collections current.
// Each mirror holds the latest full snapshot; change notifications trigger
// a wholesale reload rather than incremental patching, so readers always
// see a complete, consistent record set.
package sync

import (
	"context"
	"sync"
)

// Loader fetches the latest committed snapshot of a collection.
type Loader[T any] func(ctx context.Context) ([]T, error)

// Mirror is the live, locally held copy of one store collection. Reads are
// lock-cheap and share the snapshot slice; writers never mutate a published
// snapshot, they swap it.
type Mirror[T any] struct {
	load Loader[T]

	mu       sync.RWMutex
	snapshot []T
	version  uint64
}

// NewMirror constructs a mirror around the loader. Call Reload before
// serving reads.
func NewMirror[T any](load Loader[T]) *Mirror[T] {
	return &Mirror[T]{load: load}
}

// Reload replaces the snapshot wholesale with the latest committed state
// and bumps the version. Derived views keyed by version go stale naturally.
func (m *Mirror[T]) Reload(ctx context.Context) error {
	snapshot, err := m.load(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.snapshot = snapshot
	m.version++
	m.mu.Unlock()
	return nil
}

// Snapshot returns the current record set and its version. Callers must not
// mutate the returned slice.
func (m *Mirror[T]) Snapshot() ([]T, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot, m.version
}

// Version returns the current snapshot version.
func (m *Mirror[T]) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}
