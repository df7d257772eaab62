package alert

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for tests and local tooling.
type MemoryStore struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]Alert
	order []uuid.UUID
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[uuid.UUID]Alert)}
}

// Create implements Store.
func (m *MemoryStore) Create(_ context.Context, a Alert) (Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rows {
		if existing.Email == a.Email && existing.Postcode == a.Postcode && existing.Volume == a.Volume {
			return Alert{}, ErrDuplicate
		}
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	a.TriggeredAt = nil
	m.rows[a.ID] = a
	m.order = append(m.order, a.ID)
	return a, nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return Alert{}, ErrNotFound
	}
	return a, nil
}

// ListPending implements Store.
func (m *MemoryStore) ListPending(_ context.Context, limit int) ([]Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Alert, 0)
	for _, id := range m.order {
		if limit > 0 && len(out) == limit {
			break
		}
		if a := m.rows[id]; a.TriggeredAt == nil {
			out = append(out, a)
		}
	}
	return out, nil
}

// MarkTriggered implements Store.
func (m *MemoryStore) MarkTriggered(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return false, ErrNotFound
	}
	if a.TriggeredAt != nil {
		return false, nil
	}
	a.TriggeredAt = &at
	m.rows[id] = a
	return true, nil
}
