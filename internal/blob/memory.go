package blob

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store used in tests. It records every Delete
// call so callers can assert blob release.
type MemoryStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	deleted []string

	// FailLoad and FailSave make the corresponding operation return an error.
	FailLoad bool
	FailSave bool
}

// NewMemoryStore creates an empty in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Driver() Driver { return DriverMemory }

func (m *MemoryStore) Save(_ context.Context, data []byte, ownerID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave {
		return "", fmt.Errorf("blob: save failed for %s", ownerID)
	}
	ref := RefFor(ownerID)
	b := make([]byte, len(data))
	copy(b, data)
	m.blobs[ref] = b
	return ref, nil
}

func (m *MemoryStore) Load(_ context.Context, ref string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailLoad {
		return nil, fmt.Errorf("blob: load failed for %s", ref)
	}
	b, ok := m.blobs[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, ref)
	delete(m.blobs, ref)
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	refs := make([]string, 0, len(m.blobs))
	for ref := range m.blobs {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs, nil
}

// Put stores data under ref directly, bypassing the owner naming scheme.
func (m *MemoryStore) Put(ref string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[ref] = data
}

// Deleted returns the references passed to Delete, in call order.
func (m *MemoryStore) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.deleted))
	copy(out, m.deleted)
	return out
}
