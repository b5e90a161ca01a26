// Package testutil provides fixtures and a mock gateway for package tests.
package testutil

import "github.com/farm-platform/farm-dashboard/internal/domain"

// Tenant identifiers used across tests
const (
	TenantA = "farm-a"
	TenantB = "farm-b"
)

// NewTestItem creates an item with the given stock levels
func NewTestItem(id, name string, category domain.Category, quantity, threshold int) domain.InventoryItem {
	return domain.InventoryItem{
		ID:        id,
		TenantID:  TenantA,
		Name:      name,
		Category:  category,
		Quantity:  quantity,
		Threshold: threshold,
	}
}

// SeedItems returns a low-stock seed item and a well-stocked pump
func SeedItems() []domain.InventoryItem {
	return []domain.InventoryItem{
		NewTestItem("1", "Seed A", domain.CategorySeeds, 5, 10),
		NewTestItem("2", "Pump", domain.CategoryEquipment, 20, 5),
	}
}

// NewTestDraft creates a valid draft
func NewTestDraft() domain.Draft {
	return domain.Draft{
		Name:      "Urea",
		Category:  domain.CategoryFertilizers,
		Quantity:  40,
		Threshold: 10,
	}
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}

// StringPtr returns a pointer to v
func StringPtr(v string) *string {
	return &v
}

// Gate blocks a mock call until Release is called
type Gate struct {
	entered chan struct{}
	release chan struct{}
}

// NewGate creates a closed gate
func NewGate() *Gate {
	return &Gate{
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

// Wait signals entry and blocks until the gate is released
func (g *Gate) Wait() {
	g.entered <- struct{}{}
	<-g.release
}

// Entered is signalled each time a call reaches Wait
func (g *Gate) Entered() <-chan struct{} {
	return g.entered
}

// Release unblocks every current and future Wait
func (g *Gate) Release() {
	close(g.release)
}
