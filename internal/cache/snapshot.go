package cache

import (
	"time"

	"github.com/farm-platform/farm-dashboard/internal/domain"
)

// Status is the load state of a snapshot
type Status string

const (
	StatusIdle    Status = "Idle"
	StatusLoading Status = "Loading"
	StatusReady   Status = "Ready"
	StatusError   Status = "Error"
)

// ErrorInfo describes the failure of the most recent refresh
type ErrorInfo struct {
	Kind       domain.ErrorKind `json:"kind"`
	Message    string           `json:"message"`
	OccurredAt time.Time        `json:"occurredAt"`
}

// Snapshot is an immutable view of one tenant's inventory. Items is never mutated after the
// snapshot is published; every change produces a new slice.
type Snapshot struct {
	TenantID  string                 `json:"tenantId"`
	Items     []domain.InventoryItem `json:"items"`
	Status    Status                 `json:"status"`
	LastError *ErrorInfo             `json:"lastError,omitempty"`
	FetchedAt time.Time              `json:"fetchedAt,omitempty"`
	Version   uint64                 `json:"version"`
}

// HasTenant reports whether the snapshot belongs to an active tenant
func (s Snapshot) HasTenant() bool {
	return s.TenantID != ""
}

func errorInfo(err error, at time.Time) *ErrorInfo {
	kind := domain.KindOf(err)
	if kind == "" {
		kind = domain.KindNetwork
	}
	return &ErrorInfo{
		Kind:       kind,
		Message:    domain.UserMessage(err),
		OccurredAt: at,
	}
}

// upsert returns a new slice with item replacing the entry of the same id, or appended
func upsert(items []domain.InventoryItem, item domain.InventoryItem) []domain.InventoryItem {
	next := make([]domain.InventoryItem, 0, len(items)+1)
	replaced := false
	for _, existing := range items {
		if existing.ID == item.ID {
			next = append(next, item)
			replaced = true
			continue
		}
		next = append(next, existing)
	}
	if !replaced {
		next = append(next, item)
	}
	return next
}

// without returns a new slice lacking the item with id
func without(items []domain.InventoryItem, id string) []domain.InventoryItem {
	next := make([]domain.InventoryItem, 0, len(items))
	for _, existing := range items {
		if existing.ID != id {
			next = append(next, existing)
		}
	}
	return next
}

func indexOf(items []domain.InventoryItem, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
