package tracing

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const traceparent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

func TestInitialize_DisabledInstallsPropagatorOnly(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	defer otel.SetTextMapPropagator(prev)

	config := DefaultConfig("farm-dashboard")
	config.Enabled = false
	provider, err := Initialize(context.Background(), config)
	require.NoError(t, err)
	assert.NoError(t, provider.Shutdown(context.Background()))

	header := http.Header{}
	header.Set("traceparent", traceparent)
	ctx := ExtractTraceContext(context.Background(), propagation.HeaderCarrier(header))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", TraceID(ctx))

	out := http.Header{}
	InjectTraceContext(ctx, propagation.HeaderCarrier(out))
	assert.Equal(t, traceparent, out.Get("traceparent"))
}

func TestTraceID_WithoutSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}

func TestRecordResult(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")

	_, ok := tracer.Start(context.Background(), "ok")
	RecordResult(ok, nil)
	ok.End()

	_, failed := tracer.Start(context.Background(), "failed")
	RecordResult(failed, errors.New("connection refused"))
	failed.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "connection refused", spans[1].Status().Description)
	assert.Len(t, spans[1].Events(), 1, "error recorded as a span event")
}

func TestSpanAttributes_CarryTenant(t *testing.T) {
	for name, attrs := range map[string][]attribute.KeyValue{
		"gateway": GatewaySpanAttributes(http.MethodGet, "http://inventory/api", "farm-a"),
		"publish": PublishSpanAttributes("farm.inventory.alerts", "LowStockDetected", "id-1", "farm-a"),
	} {
		t.Run(name, func(t *testing.T) {
			assert.Contains(t, attrs, AttrTenantID.String("farm-a"))
		})
	}
}
