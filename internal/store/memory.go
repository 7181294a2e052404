package store

import (
	"context"
	"sync"

	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
)

// MemoryStore is an in-memory, thread-safe Store. Each test can construct its
// own instance; nothing is shared between instances.
type MemoryStore struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{snap: NewSnapshot()}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.snap.Get(id)
	if !ok {
		return ledger.Entry{}, ErrNotFound
	}
	return e, nil
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, entry ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Put(entry.Asset.ID, entry)
	return nil
}

// Update implements Store.
func (m *MemoryStore) Update(_ context.Context, id string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var current *ledger.Entry
	if e, ok := m.snap.Get(id); ok {
		current = &e
	}
	next, err := runUpdate(id, current, fn)
	if err != nil {
		return err
	}
	m.snap.Put(id, next)
	return nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context) ([]ledger.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.Assets(), nil
}

// Len implements Store.
func (m *MemoryStore) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.Len(), nil
}

// Snapshot returns a point-in-time copy of the store contents.
func (m *MemoryStore) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.clone()
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
