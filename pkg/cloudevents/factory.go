package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// EventFactory creates CloudEvents for farm dashboard events
type EventFactory struct {
	source string
	now    func() time.Time
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source, now: time.Now}
}

// CreateEvent creates a new FarmCloudEvent with the given parameters. The active trace context,
// if any, is carried in the traceparent/tracestate extensions.
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	tenantID string,
	data interface{},
) *FarmCloudEvent {
	event := &FarmCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            f.now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		Extensions:      make(map[string]interface{}),
		TenantID:        tenantID,
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	event.TraceParent = carrier.Get("traceparent")
	event.TraceState = carrier.Get("tracestate")

	return event
}

// CreateLowStockAlertEvent creates a LowStockAlert event for one item
func (f *EventFactory) CreateLowStockAlertEvent(ctx context.Context, tenantID string, data LowStockAlertData) *FarmCloudEvent {
	return f.CreateEvent(ctx, LowStockAlert, "inventory/"+data.ItemID, tenantID, data)
}

// CreateStockReplenishedEvent creates a StockReplenished event for one item
func (f *EventFactory) CreateStockReplenishedEvent(ctx context.Context, tenantID string, data StockReplenishedData) *FarmCloudEvent {
	return f.CreateEvent(ctx, StockReplenished, "inventory/"+data.ItemID, tenantID, data)
}
