package supplier

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests and the pricecalc CLI demo data.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]Supplier
}

// NewMemoryStore seeds a MemoryStore with the provided suppliers.
func NewMemoryStore(seed ...Supplier) *MemoryStore {
	m := &MemoryStore{rows: make(map[string]Supplier, len(seed))}
	for _, s := range seed {
		_, _ = m.Upsert(context.Background(), s)
	}
	return m
}

// List implements Store.
func (m *MemoryStore) List(context.Context) ([]Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Supplier, 0, len(m.rows))
	for _, s := range m.rows {
		out = append(out, s)
	}
	sortByName(out)
	return out, nil
}

// ListByArea implements Store.
func (m *MemoryStore) ListByArea(_ context.Context, outward string) ([]Supplier, error) {
	outward = strings.ToUpper(outward)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Supplier, 0)
	for _, s := range m.rows {
		if slices.Contains(s.Areas, outward) {
			out = append(out, s)
		}
	}
	sortByName(out)
	return out, nil
}

// GetBySlug implements Store.
func (m *MemoryStore) GetBySlug(_ context.Context, slug string) (Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.rows[slug]
	if !ok {
		return Supplier{}, ErrNotFound
	}
	return s, nil
}

// Upsert implements Store.
func (m *MemoryStore) Upsert(_ context.Context, s Supplier) (Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.rows[s.Slug]; ok {
		s.ID = existing.ID
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	areas := make([]string, 0, len(s.Areas))
	for _, a := range s.Areas {
		if trimmed := strings.ToUpper(strings.TrimSpace(a)); trimmed != "" {
			areas = append(areas, trimmed)
		}
	}
	s.Areas = areas
	s.UpdatedAt = time.Now().UTC()
	m.rows[s.Slug] = s
	return s, nil
}

func sortByName(rows []Supplier) {
	slices.SortFunc(rows, func(a, b Supplier) int { return strings.Compare(a.Name, b.Name) })
}
