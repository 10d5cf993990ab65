package store

import (
	"context"
	"sync"

	"github.com/roach88/manifest/internal/ir"
)

// MemoryBackend holds instances for every tenant of one entity type.
// Individual tenant-scoped Stores are derived with Store(tenantID); two
// stores over the same backend share rows but never see across tenants.
//
// A single mutex per backend stands in for a database transaction:
// UpdateWithEvents mutates the row and records its events under one
// lock acquisition, so readers observe both or neither.
type MemoryBackend struct {
	mu     sync.RWMutex
	rows   map[string]map[string]ir.IRObject // tenant -> id -> data
	order  map[string][]string               // tenant -> insertion order
	outbox []OutboxEvent
}

// NewMemoryBackend creates an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		rows:  make(map[string]map[string]ir.IRObject),
		order: make(map[string][]string),
	}
}

// Store returns a tenant-scoped view of the backend.
func (b *MemoryBackend) Store(tenantID string) *MemoryStore {
	return &MemoryStore{backend: b, tenantID: tenantID}
}

// Outbox returns a snapshot of all recorded outbox rows, in write
// order. Test visibility only; durability is the SQLite adapter's job.
func (b *MemoryBackend) Outbox() []OutboxEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]OutboxEvent, len(b.outbox))
	copy(out, b.outbox)
	return out
}

// MemoryStore is the in-memory Store implementation. Satisfies both
// Store and EventWriter.
type MemoryStore struct {
	backend  *MemoryBackend
	tenantID string
}

var (
	_ Store       = (*MemoryStore)(nil)
	_ EventWriter = (*MemoryStore)(nil)
)

// GetAll returns this tenant's instances in insertion order.
func (s *MemoryStore) GetAll(ctx context.Context) ([]Instance, error) {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()

	var out []Instance
	for _, id := range s.backend.order[s.tenantID] {
		if data, ok := s.backend.rows[s.tenantID][id]; ok {
			out = append(out, Instance{ID: id, Data: data.Clone()})
		}
	}
	return out, nil
}

// GetByID returns the instance, or (nil, nil) when absent.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*Instance, error) {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()

	data, ok := s.backend.rows[s.tenantID][id]
	if !ok {
		return nil, nil
	}
	return &Instance{ID: id, Data: data.Clone()}, nil
}

// Create inserts a new instance for this tenant.
func (s *MemoryStore) Create(ctx context.Context, inst Instance) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()

	if s.backend.rows[s.tenantID] == nil {
		s.backend.rows[s.tenantID] = make(map[string]ir.IRObject)
	}
	if _, exists := s.backend.rows[s.tenantID][inst.ID]; !exists {
		s.backend.order[s.tenantID] = append(s.backend.order[s.tenantID], inst.ID)
	}
	s.backend.rows[s.tenantID][inst.ID] = inst.Data.Clone()
	return nil
}

// Update replaces an existing instance's data.
func (s *MemoryStore) Update(ctx context.Context, id string, data ir.IRObject) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	return s.updateLocked(id, data)
}

func (s *MemoryStore) updateLocked(id string, data ir.IRObject) error {
	if _, ok := s.backend.rows[s.tenantID][id]; !ok {
		return ErrNotFound
	}
	s.backend.rows[s.tenantID][id] = data.Clone()
	return nil
}

// UpdateWithEvents applies the mutation and records the outbox rows
// under a single lock acquisition. If the instance is missing, nothing
// is recorded.
func (s *MemoryStore) UpdateWithEvents(ctx context.Context, id string, data ir.IRObject, events []OutboxEvent) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()

	if err := s.updateLocked(id, data); err != nil {
		return err
	}
	s.backend.outbox = append(s.backend.outbox, events...)
	return nil
}

// Delete removes an instance.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()

	if _, ok := s.backend.rows[s.tenantID][id]; !ok {
		return ErrNotFound
	}
	delete(s.backend.rows[s.tenantID], id)
	order := s.backend.order[s.tenantID]
	for i, oid := range order {
		if oid == id {
			s.backend.order[s.tenantID] = append(order[:i:i], order[i+1:]...)
			break
		}
	}
	return nil
}

// Clear removes every instance belonging to this tenant. Other
// tenants' rows are untouched.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()

	delete(s.backend.rows, s.tenantID)
	delete(s.backend.order, s.tenantID)
	return nil
}
