package alerting

import (
	"sync"

	"github.com/farm-platform/farm-dashboard/internal/domain"
)

// Derived bundles every value computed from one item list
type Derived struct {
	LowStock     []domain.InventoryItem `json:"lowStock"`
	Suggestions  []ReorderSuggestion    `json:"reorderSuggestions"`
	Distribution []DistributionEntry    `json:"distribution"`
	Status       StockStatus            `json:"status"`
}

// Compute derives all values from items
func Compute(items []domain.InventoryItem, horizonDays int) Derived {
	return Derived{
		LowStock:     LowStockItems(items),
		Suggestions:  ReorderSuggestions(items, horizonDays),
		Distribution: StockDistribution(items),
		Status:       Status(items),
	}
}

// Deriver memoizes Derived for the most recent item slice. A hit requires the very same slice
// (same backing array and length), so callers must never mutate a slice after deriving from it.
type Deriver struct {
	horizonDays int

	mu     sync.Mutex
	items  []domain.InventoryItem
	cached *Derived
}

// NewDeriver creates a Deriver quoting horizonDays in reorder suggestions
func NewDeriver(horizonDays int) *Deriver {
	if horizonDays <= 0 {
		horizonDays = DefaultReorderHorizonDays
	}
	return &Deriver{horizonDays: horizonDays}
}

// HorizonDays returns the reorder horizon used in suggestions
func (d *Deriver) HorizonDays() int {
	return d.horizonDays
}

// Derive returns the derived values for items, recomputing only when items is a different slice
func (d *Deriver) Derive(items []domain.InventoryItem) Derived {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cached != nil && sameSlice(d.items, items) {
		return *d.cached
	}

	derived := Compute(items, d.horizonDays)
	d.items = items
	d.cached = &derived
	return derived
}

func sameSlice(a, b []domain.InventoryItem) bool {
	if len(a) != len(b) || (a == nil) != (b == nil) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return &a[0] == &b[0]
}
