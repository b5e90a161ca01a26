package gateway

import "github.com/farm-platform/farm-dashboard/internal/domain"

// Envelope is the JSON body of every gateway response. Items is set by list calls, Item by
// create and update calls. Message carries the reason when Success is false.
type Envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	Items   []domain.InventoryItem `json:"items,omitempty"`
	Item    *domain.InventoryItem  `json:"item,omitempty"`
}

// CreateItemRequest is the body of a create call: the draft plus the owning tenant
type CreateItemRequest struct {
	TenantID string `json:"tenantId"`
	domain.Draft
}

// UpdateItemRequest is the body of an update call
type UpdateItemRequest struct {
	TenantID string `json:"tenantId"`
	domain.Patch
}
