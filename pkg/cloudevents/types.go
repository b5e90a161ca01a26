package cloudevents

import (
	"time"
)

// EventType constants for farm dashboard events
const (
	LowStockAlert    = "farm.inventory.low-stock-alert"
	StockReplenished = "farm.inventory.stock-replenished"
)

// SourceDashboard is the CloudEvents source for events emitted by the dashboard
const SourceDashboard = "/farm/dashboard"

// FarmCloudEvent represents a CloudEvents v1.0 compliant event for the farm platform
type FarmCloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype,omitempty"`
	Data            interface{}            `json:"data,omitempty"`
	Extensions      map[string]interface{} `json:"-"`

	// Farm extensions
	TenantID      string `json:"farmtenantid,omitempty"`
	CorrelationID string `json:"farmcorrelationid,omitempty"`

	// W3C Trace Context
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}

// LowStockAlertData is the payload of a LowStockAlert event
type LowStockAlertData struct {
	ItemID     string    `json:"itemId"`
	ItemName   string    `json:"itemName"`
	Category   string    `json:"category"`
	Quantity   int       `json:"quantity"`
	Threshold  int       `json:"threshold"`
	Suggestion string    `json:"suggestion"`
	DetectedAt time.Time `json:"detectedAt"`
}

// StockReplenishedData is the payload of a StockReplenished event
type StockReplenishedData struct {
	ItemID     string    `json:"itemId"`
	ItemName   string    `json:"itemName"`
	Quantity   int       `json:"quantity"`
	Threshold  int       `json:"threshold"`
	DetectedAt time.Time `json:"detectedAt"`
}
