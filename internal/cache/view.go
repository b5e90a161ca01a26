package cache

import (
	"github.com/farm-platform/farm-dashboard/internal/alerting"
	"github.com/farm-platform/farm-dashboard/internal/domain"
)

// Subscribe registers l for every snapshot published from now on. The returned function removes
// the listener and is safe to call more than once.
func (c *Cache) Subscribe(l Listener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = l
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Snapshot returns the current snapshot
func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// TenantID returns the active tenant, or "" before Initialize
func (c *Cache) TenantID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot.TenantID
}

// Derived returns every derived value of the current snapshot
func (c *Cache) Derived() alerting.Derived {
	return c.deriver.Derive(c.Snapshot().Items)
}

// DerivedFor returns the derived values of s, sharing the memo with Derived
func (c *Cache) DerivedFor(s Snapshot) alerting.Derived {
	return c.deriver.Derive(s.Items)
}

// LowStockItems returns the low-stock items of the current snapshot
func (c *Cache) LowStockItems() []domain.InventoryItem {
	return c.Derived().LowStock
}

// ReorderSuggestions returns the reorder suggestions of the current snapshot
func (c *Cache) ReorderSuggestions() []alerting.ReorderSuggestion {
	return c.Derived().Suggestions
}

// StockDistribution returns the category distribution of the current snapshot
func (c *Cache) StockDistribution() []alerting.DistributionEntry {
	return c.Derived().Distribution
}

// Status returns the stock status of the current snapshot
func (c *Cache) Status() alerting.StockStatus {
	return c.Derived().Status
}
