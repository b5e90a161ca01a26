package stub

import "github.com/farm-platform/farm-dashboard/internal/domain"

// Demo tenants seeded by SeedDemo
const (
	DemoTenantNorth = "north-field"
	DemoTenantRiver = "river-farm"
)

// SeedDemo loads two small farms, each with a mix of healthy and low-stock items
func SeedDemo(s *Store) {
	s.Seed(DemoTenantNorth,
		domain.InventoryItem{Name: "Wheat Seed", Category: domain.CategorySeeds, Quantity: 8, Threshold: 20},
		domain.InventoryItem{Name: "Corn Seed", Category: domain.CategorySeeds, Quantity: 120, Threshold: 40},
		domain.InventoryItem{Name: "NPK 20-20-20", Category: domain.CategoryFertilizers, Quantity: 15, Threshold: 15},
		domain.InventoryItem{Name: "Glyphosate", Category: domain.CategoryPesticides, Quantity: 30, Threshold: 10},
		domain.InventoryItem{Name: "Diesel", Category: domain.CategoryFuel, Quantity: 400, Threshold: 250},
		domain.InventoryItem{Name: "Seed Drill", Category: domain.CategoryEquipment, Quantity: 1, Threshold: 0},
	)
	s.Seed(DemoTenantRiver,
		domain.InventoryItem{Name: "Layer Pellets", Category: domain.CategoryFeed, Quantity: 12, Threshold: 25},
		domain.InventoryItem{Name: "Hay Bales", Category: domain.CategoryFeed, Quantity: 80, Threshold: 30},
		domain.InventoryItem{Name: "Fence Pliers", Category: domain.CategoryTools, Quantity: 4, Threshold: 2},
		domain.InventoryItem{Name: "Water Pump", Category: domain.CategoryEquipment, Quantity: 2, Threshold: 1},
	)
}
