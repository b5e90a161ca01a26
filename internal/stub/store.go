// Package stub is an in-memory remote inventory service speaking the gateway's REST contract.
// It backs local development and serves as the HTTP peer in gateway tests.
package stub

import (
	"sync"

	"github.com/google/uuid"

	"github.com/farm-platform/farm-dashboard/internal/domain"
)

// Store keeps per-tenant item lists in insertion order
type Store struct {
	mu    sync.RWMutex
	items map[string][]domain.InventoryItem
	newID func() string
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		items: make(map[string][]domain.InventoryItem),
		newID: func() string { return uuid.New().String() },
	}
}

// Seed replaces a tenant's items. Items without an id are given one.
func (s *Store) Seed(tenantID string, items ...domain.InventoryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seeded := make([]domain.InventoryItem, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			item.ID = s.newID()
		}
		item.TenantID = tenantID
		seeded = append(seeded, item)
	}
	s.items[tenantID] = seeded
}

// List returns a copy of a tenant's items
func (s *Store) List(tenantID string) []domain.InventoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.InventoryItem, len(s.items[tenantID]))
	copy(out, s.items[tenantID])
	return out
}

// Create stores a new item built from draft
func (s *Store) Create(tenantID string, draft domain.Draft) domain.InventoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := domain.InventoryItem{
		ID:        s.newID(),
		TenantID:  tenantID,
		Name:      draft.Name,
		Category:  draft.Category,
		Quantity:  draft.Quantity,
		Threshold: draft.Threshold,
	}
	s.items[tenantID] = append(s.items[tenantID], item)
	return item
}

// Update applies patch to an item. The patched item is validated before it is stored.
func (s *Store) Update(tenantID, id string, patch domain.Patch) (domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, item := range s.items[tenantID] {
		if item.ID != id {
			continue
		}
		updated := patch.Apply(item)
		if err := domain.ValidateItem(updated); err != nil {
			return domain.InventoryItem{}, err
		}
		s.items[tenantID][i] = updated
		return updated, nil
	}
	return domain.InventoryItem{}, domain.NewNotFound(id)
}

// Delete removes an item
func (s *Store) Delete(tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.items[tenantID]
	for i, item := range items {
		if item.ID == id {
			s.items[tenantID] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return domain.NewNotFound(id)
}

// Tenants returns the number of tenants with stored items
func (s *Store) Tenants() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
