package state

import (
	"context"
	"sync"
)

// MemoryStore keeps crawl state for the lifetime of the process. Used for
// runs without a configured database and in tests.
type MemoryStore struct {
	mu   sync.Mutex
	recs map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]Record)}
}

// Load returns every record.
func (m *MemoryStore) Load(_ context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, len(m.recs))
	for _, r := range m.recs {
		out = append(out, r)
	}
	return out, nil
}

// Upsert stores or replaces a record by domain.
func (m *MemoryStore) Upsert(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.Domain] = rec
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() {}
