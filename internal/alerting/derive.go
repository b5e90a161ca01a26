// Package alerting derives low-stock signals, reorder suggestions and category distribution
// from an inventory snapshot. Every function is pure and total over well-formed input.
package alerting

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/farm-platform/farm-dashboard/internal/domain"
)

// DefaultReorderHorizonDays is the horizon quoted in reorder suggestions
const DefaultReorderHorizonDays = 5

// StockStatus summarizes a snapshot for the overview panel
type StockStatus string

const (
	StatusNoData          StockStatus = "NoData"
	StatusAllInStock      StockStatus = "AllInStock"
	StatusAttentionNeeded StockStatus = "AttentionNeeded"
)

// ReorderSuggestion asks the user to restock one low-stock item
type ReorderSuggestion struct {
	ItemID   string `json:"itemId"`
	ItemName string `json:"itemName"`
	Message  string `json:"message"`
}

// DistributionEntry is one category's slice of the stock distribution chart.
// Value is the number of items in the category.
type DistributionEntry struct {
	Category domain.Category `json:"category"`
	Value    int             `json:"value"`
	Quantity int             `json:"quantity"`
	Share    decimal.Decimal `json:"share"`
	Color    string          `json:"color"`
}

// LowStockItems returns the items whose quantity is at or below threshold, in input order
func LowStockItems(items []domain.InventoryItem) []domain.InventoryItem {
	low := make([]domain.InventoryItem, 0)
	for _, item := range items {
		if item.IsLowStock() {
			low = append(low, item)
		}
	}
	return low
}

// ReorderSuggestions returns one suggestion per low-stock item, in LowStockItems order.
// A non-positive horizon falls back to DefaultReorderHorizonDays.
func ReorderSuggestions(items []domain.InventoryItem, horizonDays int) []ReorderSuggestion {
	if horizonDays <= 0 {
		horizonDays = DefaultReorderHorizonDays
	}

	low := LowStockItems(items)
	suggestions := make([]ReorderSuggestion, 0, len(low))
	for _, item := range low {
		suggestions = append(suggestions, ReorderSuggestion{
			ItemID:   item.ID,
			ItemName: item.Name,
			Message:  fmt.Sprintf("Order %s within %d days if required", item.Name, horizonDays),
		})
	}
	return suggestions
}

// StockDistribution counts items per category. Categories appear in order of first occurrence;
// categories with no items are omitted. Values sum to len(items).
func StockDistribution(items []domain.InventoryItem) []DistributionEntry {
	entries := make([]DistributionEntry, 0)
	index := make(map[domain.Category]int)

	for _, item := range items {
		i, ok := index[item.Category]
		if !ok {
			i = len(entries)
			index[item.Category] = i
			entries = append(entries, DistributionEntry{
				Category: item.Category,
				Color:    ColorFor(item.Category),
			})
		}
		entries[i].Value++
		entries[i].Quantity += item.Quantity
	}

	if len(items) > 0 {
		total := decimal.NewFromInt(int64(len(items)))
		for i := range entries {
			entries[i].Share = decimal.NewFromInt(int64(entries[i].Value)).DivRound(total, 4)
		}
	}
	return entries
}

// Status classifies the snapshot: NoData when empty, AllInStock when nothing is low,
// AttentionNeeded otherwise.
func Status(items []domain.InventoryItem) StockStatus {
	if len(items) == 0 {
		return StatusNoData
	}
	for _, item := range items {
		if item.IsLowStock() {
			return StatusAttentionNeeded
		}
	}
	return StatusAllInStock
}

// Transition describes how the low-stock set changed between two item lists
type Transition struct {
	NewlyLow    []domain.InventoryItem
	Replenished []domain.InventoryItem
}

// CompareLowStock reports items that became low-stock and items that left the low-stock set
// between prev and next. Items removed from next are not reported as replenished.
func CompareLowStock(prev, next []domain.InventoryItem) Transition {
	wasLow := make(map[string]bool, len(prev))
	for _, item := range prev {
		wasLow[item.ID] = item.IsLowStock()
	}

	t := Transition{
		NewlyLow:    make([]domain.InventoryItem, 0),
		Replenished: make([]domain.InventoryItem, 0),
	}
	for _, item := range next {
		low, seen := wasLow[item.ID]
		switch {
		case item.IsLowStock() && (!seen || !low):
			t.NewlyLow = append(t.NewlyLow, item)
		case !item.IsLowStock() && seen && low:
			t.Replenished = append(t.Replenished, item)
		}
	}
	return t
}
