package api

import (
	"github.com/farm-platform/farm-dashboard/internal/alerting"
	"github.com/farm-platform/farm-dashboard/internal/cache"
	"github.com/farm-platform/farm-dashboard/internal/controller"
	"github.com/farm-platform/farm-dashboard/internal/domain"
	"github.com/farm-platform/farm-dashboard/pkg/resilience"
)

// InventoryResponse is a snapshot with its derived values
type InventoryResponse struct {
	Snapshot cache.Snapshot   `json:"snapshot"`
	Derived  alerting.Derived `json:"derived"`
	Polling  controller.State `json:"polling"`
}

// LowStockResponse lists low-stock items
type LowStockResponse struct {
	TenantID string                 `json:"tenantId"`
	Items    []domain.InventoryItem `json:"items"`
	Count    int                    `json:"count"`
}

// ReorderResponse lists reorder suggestions
type ReorderResponse struct {
	TenantID    string                       `json:"tenantId"`
	Suggestions []alerting.ReorderSuggestion `json:"suggestions"`
}

// DistributionResponse is the stock distribution chart data
type DistributionResponse struct {
	TenantID     string                       `json:"tenantId"`
	Distribution []alerting.DistributionEntry `json:"distribution"`
	TotalItems   int                          `json:"totalItems"`
}

// StatusResponse summarizes the session for the overview panel
type StatusResponse struct {
	TenantID    string                                     `json:"tenantId"`
	StockStatus alerting.StockStatus                       `json:"stockStatus"`
	CacheStatus cache.Status                               `json:"cacheStatus"`
	Polling     controller.State                           `json:"polling"`
	LastError   *cache.ErrorInfo                           `json:"lastError,omitempty"`
	Version     uint64                                     `json:"version"`
	Breakers    map[string]resilience.CircuitBreakerStatus `json:"breakers,omitempty"`
}

// SwitchTenantRequest selects the tenant to poll
type SwitchTenantRequest struct {
	TenantID string `json:"tenantId" binding:"required"`
}

// StreamMessage is pushed to stream clients for every snapshot
type StreamMessage struct {
	Type     string           `json:"type"`
	Snapshot cache.Snapshot   `json:"snapshot"`
	Derived  alerting.Derived `json:"derived"`
}
