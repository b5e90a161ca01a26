package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/farm-platform/farm-dashboard/internal/domain"
)

// MockGateway is an in-memory implementation of gateway.Gateway. The *Func fields override the
// default behaviour of the matching call.
type MockGateway struct {
	mu     sync.Mutex
	items  map[string][]domain.InventoryItem
	nextID int
	calls  map[string]int

	ListItemsFunc  func(ctx context.Context, tenantID string) ([]domain.InventoryItem, error)
	CreateItemFunc func(ctx context.Context, tenantID string, draft domain.Draft) (domain.InventoryItem, error)
	UpdateItemFunc func(ctx context.Context, tenantID, id string, patch domain.Patch) (domain.InventoryItem, error)
	DeleteItemFunc func(ctx context.Context, tenantID, id string) error
}

// NewMockGateway creates an empty mock gateway
func NewMockGateway() *MockGateway {
	return &MockGateway{
		items: make(map[string][]domain.InventoryItem),
		calls: make(map[string]int),
	}
}

// SetItems replaces the stored items of a tenant
func (m *MockGateway) SetItems(tenantID string, items ...domain.InventoryItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]domain.InventoryItem, len(items))
	copy(stored, items)
	m.items[tenantID] = stored
}

// Calls returns how many times op was invoked
func (m *MockGateway) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MockGateway) record(op string) {
	m.mu.Lock()
	m.calls[op]++
	m.mu.Unlock()
}

// ListItems implements gateway.Gateway
func (m *MockGateway) ListItems(ctx context.Context, tenantID string) ([]domain.InventoryItem, error) {
	m.record("list_items")
	if m.ListItemsFunc != nil {
		return m.ListItemsFunc(ctx, tenantID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.InventoryItem, len(m.items[tenantID]))
	copy(out, m.items[tenantID])
	return out, nil
}

// CreateItem implements gateway.Gateway
func (m *MockGateway) CreateItem(ctx context.Context, tenantID string, draft domain.Draft) (domain.InventoryItem, error) {
	m.record("create_item")
	if m.CreateItemFunc != nil {
		return m.CreateItemFunc(ctx, tenantID, draft)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	item := domain.InventoryItem{
		ID:        fmt.Sprintf("gen-%d", m.nextID),
		TenantID:  tenantID,
		Name:      draft.Name,
		Category:  draft.Category,
		Quantity:  draft.Quantity,
		Threshold: draft.Threshold,
	}
	m.items[tenantID] = append(m.items[tenantID], item)
	return item, nil
}

// UpdateItem implements gateway.Gateway
func (m *MockGateway) UpdateItem(ctx context.Context, tenantID, id string, patch domain.Patch) (domain.InventoryItem, error) {
	m.record("update_item")
	if m.UpdateItemFunc != nil {
		return m.UpdateItemFunc(ctx, tenantID, id, patch)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, item := range m.items[tenantID] {
		if item.ID == id {
			updated := patch.Apply(item)
			m.items[tenantID][i] = updated
			return updated, nil
		}
	}
	return domain.InventoryItem{}, domain.NewNotFound(id)
}

// DeleteItem implements gateway.Gateway
func (m *MockGateway) DeleteItem(ctx context.Context, tenantID, id string) error {
	m.record("delete_item")
	if m.DeleteItemFunc != nil {
		return m.DeleteItemFunc(ctx, tenantID, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items[tenantID]
	for i, item := range items {
		if item.ID == id {
			m.items[tenantID] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return domain.NewNotFound(id)
}
