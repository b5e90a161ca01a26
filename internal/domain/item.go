package domain

import "strings"

// Category groups inventory items for distribution charts. The set is open: the constants below
// are the categories the dashboard knows colours for, any other lowercase token is accepted.
type Category string

const (
	CategorySeeds       Category = "seeds"
	CategoryFertilizers Category = "fertilizers"
	CategoryPesticides  Category = "pesticides"
	CategoryEquipment   Category = "equipment"
	CategoryFeed        Category = "feed"
	CategoryFuel        Category = "fuel"
	CategoryTools       Category = "tools"
)

// KnownCategories lists the built-in categories in display order
var KnownCategories = []Category{
	CategorySeeds,
	CategoryFertilizers,
	CategoryPesticides,
	CategoryEquipment,
	CategoryFeed,
	CategoryFuel,
	CategoryTools,
}

// IsKnown reports whether c is one of the built-in categories
func (c Category) IsKnown() bool {
	for _, known := range KnownCategories {
		if c == known {
			return true
		}
	}
	return false
}

// NormalizeCategory lowercases and trims a category name
func NormalizeCategory(s string) Category {
	return Category(strings.ToLower(strings.TrimSpace(s)))
}

// InventoryItem is one stocked item as confirmed by the remote inventory service
type InventoryItem struct {
	ID        string   `json:"id" validate:"required"`
	TenantID  string   `json:"tenantId"`
	Name      string   `json:"name" validate:"required,max=120"`
	Category  Category `json:"category" validate:"required,category"`
	Quantity  int      `json:"quantity" validate:"gte=0"`
	Threshold int      `json:"threshold" validate:"gte=0"`
}

// IsLowStock reports whether the item is at or below its reorder threshold
func (i InventoryItem) IsLowStock() bool {
	return i.Quantity <= i.Threshold
}

// Draft holds the fields of an item to be created; the gateway assigns id and tenant.
type Draft struct {
	Name      string   `json:"name" validate:"required,max=120"`
	Category  Category `json:"category" validate:"required,category"`
	Quantity  int      `json:"quantity" validate:"gte=0"`
	Threshold int      `json:"threshold" validate:"gte=0"`
}

// Normalize trims the name and lowercases the category
func (d Draft) Normalize() Draft {
	d.Name = strings.TrimSpace(d.Name)
	d.Category = NormalizeCategory(string(d.Category))
	return d
}

// Patch holds a partial update. Nil fields are left unchanged.
type Patch struct {
	Name      *string   `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Category  *Category `json:"category,omitempty" validate:"omitempty,category"`
	Quantity  *int      `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	Threshold *int      `json:"threshold,omitempty" validate:"omitempty,gte=0"`
}

// IsEmpty reports whether the patch changes nothing
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Category == nil && p.Quantity == nil && p.Threshold == nil
}

// Normalize trims the name and lowercases the category
func (p Patch) Normalize() Patch {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
	}
	if p.Category != nil {
		category := NormalizeCategory(string(*p.Category))
		p.Category = &category
	}
	return p
}

// Apply returns a copy of item with the patch applied
func (p Patch) Apply(item InventoryItem) InventoryItem {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.Threshold != nil {
		item.Threshold = *p.Threshold
	}
	return item
}
