package kafka

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/farm-platform/farm-dashboard/pkg/cloudevents"
	"github.com/farm-platform/farm-dashboard/pkg/logging"
	"github.com/farm-platform/farm-dashboard/pkg/metrics"
	"github.com/farm-platform/farm-dashboard/pkg/tracing"
)

// EventPublisher publishes CloudEvents to a topic
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.FarmCloudEvent) error
}

// InstrumentedProducer counts, logs and traces every alert event it forwards
type InstrumentedProducer struct {
	next    EventPublisher
	metrics *metrics.Metrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

// NewInstrumentedProducer wraps next. m and logger may be nil.
func NewInstrumentedProducer(next EventPublisher, m *metrics.Metrics, logger *logging.Logger) *InstrumentedProducer {
	return &InstrumentedProducer{
		next:    next,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("alert-producer"),
	}
}

// PublishEvent forwards event inside a producer span
func (p *InstrumentedProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.FarmCloudEvent) error {
	ctx, span := p.tracer.Start(ctx, "publish "+event.Type,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(tracing.PublishSpanAttributes(topic, event.Type, event.ID, event.TenantID)...),
	)
	defer span.End()

	start := time.Now()
	err := p.next.PublishEvent(ctx, topic, event)
	tracing.RecordResult(span, err)

	if p.metrics != nil {
		p.metrics.RecordAlertPublished(err == nil)
	}
	if p.logger != nil {
		p.logger.KafkaPublish(ctx, topic, event.Type, err == nil, time.Since(start))
	}
	return err
}
