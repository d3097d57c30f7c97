package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStateStore keeps state records in process memory. Records are lost
// when the process exits.
type MemoryStateStore struct {
	mu      sync.RWMutex
	records map[string]StateRecord
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{records: make(map[string]StateRecord)}
}

func (m *MemoryStateStore) LoadState(ctx context.Context, name string) (*StateRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[name]
	if !ok {
		return nil, ErrStateNotFound
	}
	rec.Data = append([]byte(nil), rec.Data...)
	return &rec, nil
}

func (m *MemoryStateStore) SaveState(ctx context.Context, record StateRecord) error {
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}
	record.Data = append([]byte(nil), record.Data...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.Name] = record
	return nil
}

func (m *MemoryStateStore) DeleteState(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, name)
	return nil
}
