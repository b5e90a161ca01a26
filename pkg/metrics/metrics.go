package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresh outcomes recorded by the inventory cache
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeDropped = "dropped"
	OutcomeStale   = "stale"
)

// Metrics holds all dashboard metrics
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Gateway metrics
	GatewayRequestsTotal   *prometheus.CounterVec
	GatewayRequestDuration *prometheus.HistogramVec

	// Cache metrics
	RefreshesTotal  *prometheus.CounterVec
	MutationsTotal  *prometheus.CounterVec
	CachedItems     *prometheus.GaugeVec
	LowStockItems   *prometheus.GaugeVec
	StreamListeners prometheus.Gauge

	// Alert metrics
	AlertsPublished *prometheus.CounterVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "farm",
	}
}

// New creates a new Metrics instance on its own registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.GatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "gateway_requests_total",
			Help:      "Total number of calls to the remote inventory gateway",
		},
		[]string{"service", "operation", "outcome"},
	)

	m.GatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Remote inventory gateway call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)

	m.RefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "inventory_refreshes_total",
			Help:      "Inventory cache refreshes by outcome (success, error, dropped, stale)",
		},
		[]string{"service", "outcome"},
	)

	m.MutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "inventory_mutations_total",
			Help:      "Inventory cache mutations by operation and outcome",
		},
		[]string{"service", "operation", "outcome"},
	)

	m.CachedItems = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "inventory_cached_items",
			Help:      "Number of items in the current inventory snapshot",
		},
		[]string{"service", "tenant"},
	)

	m.LowStockItems = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "inventory_low_stock_items",
			Help:      "Number of items at or below their reorder threshold",
		},
		[]string{"service", "tenant"},
	)

	m.StreamListeners = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "snapshot_stream_listeners",
			Help:        "Number of connected snapshot stream clients",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.AlertsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "low_stock_alerts_published_total",
			Help:      "Low-stock alert events published",
		},
		[]string{"service", "status"},
	)

	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"service", "name"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.GatewayRequestsTotal,
		m.GatewayRequestDuration,
		m.RefreshesTotal,
		m.MutationsTotal,
		m.CachedItems,
		m.LowStockItems,
		m.StreamListeners,
		m.AlertsPublished,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// RecordGatewayRequest records a call to the remote inventory gateway
func (m *Metrics) RecordGatewayRequest(operation string, err error, duration time.Duration) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.GatewayRequestsTotal.WithLabelValues(m.serviceName, operation, outcome).Inc()
	m.GatewayRequestDuration.WithLabelValues(m.serviceName, operation).Observe(duration.Seconds())
}

// RecordRefresh records the outcome of a cache refresh
func (m *Metrics) RecordRefresh(outcome string) {
	m.RefreshesTotal.WithLabelValues(m.serviceName, outcome).Inc()
}

// RecordMutation records the outcome of a cache mutation
func (m *Metrics) RecordMutation(operation string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.MutationsTotal.WithLabelValues(m.serviceName, operation, outcome).Inc()
}

// SetSnapshotGauges publishes item counts for the tenant's current snapshot
func (m *Metrics) SetSnapshotGauges(tenantID string, items, lowStock int) {
	m.CachedItems.WithLabelValues(m.serviceName, tenantID).Set(float64(items))
	m.LowStockItems.WithLabelValues(m.serviceName, tenantID).Set(float64(lowStock))
}

// RecordAlertPublished records a low-stock alert publish attempt
func (m *Metrics) RecordAlertPublished(success bool) {
	status := OutcomeSuccess
	if !success {
		status = OutcomeError
	}
	m.AlertsPublished.WithLabelValues(m.serviceName, status).Inc()
}

// SetCircuitBreakerState records a circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}
