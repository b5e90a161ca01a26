// Package gateway defines the contract of the remote inventory service and an HTTP client for it.
package gateway

import (
	"context"

	"github.com/farm-platform/farm-dashboard/internal/domain"
)

// Gateway is the remote inventory source of truth. Every call is scoped by tenant.
// Implementations return *domain.Error values classified as NetworkError, ServerRejected
// or NotFound.
type Gateway interface {
	ListItems(ctx context.Context, tenantID string) ([]domain.InventoryItem, error)
	CreateItem(ctx context.Context, tenantID string, draft domain.Draft) (domain.InventoryItem, error)
	UpdateItem(ctx context.Context, tenantID, id string, patch domain.Patch) (domain.InventoryItem, error)
	DeleteItem(ctx context.Context, tenantID, id string) error
}

// Operation names used in logs, metrics and spans
const (
	OpListItems  = "list_items"
	OpCreateItem = "create_item"
	OpUpdateItem = "update_item"
	OpDeleteItem = "delete_item"
)
