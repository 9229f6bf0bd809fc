package persistence

import (
	"context"
	"sync"

	"github.com/orderdesk/backend/internal/domain/order"
	"github.com/orderdesk/backend/internal/domain/shared"
)

// InMemoryOrderRepository implements the order document store with an
// in-process map. Records are cloned at the boundary in both directions so
// callers never alias stored state.
type InMemoryOrderRepository struct {
	mu      sync.RWMutex
	records map[string]*order.OrderRecord
}

// NewInMemoryOrderRepository creates an empty in-memory repository
func NewInMemoryOrderRepository() *InMemoryOrderRepository {
	return &InMemoryOrderRepository{
		records: make(map[string]*order.OrderRecord),
	}
}

// Get returns the record for the normalized identifier
func (r *InMemoryOrderRepository) Get(_ context.Context, identifier string) (*order.OrderRecord, error) {
	r.mu.RLock()
	rec, ok := r.records[identifier]
	r.mu.RUnlock()
	if !ok {
		return nil, shared.ErrNotFound.WithMessage("order " + identifier + " not found")
	}
	return rec.Clone(), nil
}

// Put stores the record, overwriting any previous version
func (r *InMemoryOrderRepository) Put(_ context.Context, record *order.OrderRecord) error {
	r.mu.Lock()
	r.records[record.Identifier] = record.Clone()
	r.mu.Unlock()
	return nil
}

// Delete removes the record for the identifier
func (r *InMemoryOrderRepository) Delete(_ context.Context, identifier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[identifier]; !ok {
		return shared.ErrNotFound.WithMessage("order " + identifier + " not found")
	}
	delete(r.records, identifier)
	return nil
}

// List returns all records in unspecified order
func (r *InMemoryOrderRepository) List(_ context.Context) ([]*order.OrderRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := make([]*order.OrderRecord, 0, len(r.records))
	for _, rec := range r.records {
		records = append(records, rec.Clone())
	}
	return records, nil
}
