package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/farm-platform/farm-dashboard/internal/domain"
	"github.com/farm-platform/farm-dashboard/pkg/logging"
	"github.com/farm-platform/farm-dashboard/pkg/metrics"
	"github.com/farm-platform/farm-dashboard/pkg/resilience"
	"github.com/farm-platform/farm-dashboard/pkg/tenant"
	"github.com/farm-platform/farm-dashboard/pkg/tracing"
)

const breakerName = "inventory-gateway"

// maxResponseBytes bounds how much of a response body is read
const maxResponseBytes = 4 << 20

// Config holds the HTTP gateway settings
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second; 0 disables limiting
	RateBurst int

	CircuitBreaker *resilience.CircuitBreakerConfig

	// Breakers, when set, owns the gateway's circuit breaker so its state can be reported
	Breakers *resilience.CircuitBreakerRegistry
}

// DefaultConfig returns the gateway defaults for baseURL
func DefaultConfig(baseURL string) *Config {
	return &Config{
		BaseURL:        baseURL,
		Timeout:        10 * time.Second,
		RateLimit:      20,
		RateBurst:      10,
		CircuitBreaker: resilience.DefaultCircuitBreakerConfig(breakerName),
	}
}

// HTTPGateway talks to the remote inventory service over REST
type HTTPGateway struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	limiter    *rate.Limiter
	tracer     trace.Tracer
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewHTTPGateway creates a gateway client. logger and m may be nil.
func NewHTTPGateway(config *Config, logger *logging.Logger, m *metrics.Metrics) *HTTPGateway {
	if logger == nil {
		logger = logging.NewNop()
	}

	cbConfig := config.CircuitBreaker
	if cbConfig == nil {
		cbConfig = resilience.DefaultCircuitBreakerConfig(breakerName)
	}
	cbConfig.IsSuccessful = func(err error) bool {
		// only transport failures should open the circuit
		return err == nil || !errors.Is(err, domain.ErrNetwork)
	}
	if m != nil {
		cbConfig.OnStateChange = func(name string, _, to gobreaker.State) {
			m.SetCircuitBreakerState(name, int(to))
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	return &HTTPGateway{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		breaker: newBreaker(config.Breakers, cbConfig, logger),
		limiter: limiter,
		tracer:  otel.Tracer("inventory-gateway"),
		logger:  logger.WithComponent("gateway"),
		metrics: m,
	}
}

func newBreaker(registry *resilience.CircuitBreakerRegistry, config *resilience.CircuitBreakerConfig, logger *logging.Logger) *resilience.CircuitBreaker {
	if registry != nil {
		return registry.GetWithConfig(config)
	}
	return resilience.NewCircuitBreaker(config, logger.Logger)
}

// Breaker exposes the circuit breaker for status reporting
func (g *HTTPGateway) Breaker() *resilience.CircuitBreaker {
	return g.breaker
}

func (g *HTTPGateway) itemsURL(tenantID string) string {
	return fmt.Sprintf("%s/api/v1/tenants/%s/inventory", g.baseURL, url.PathEscape(tenantID))
}

func (g *HTTPGateway) itemURL(tenantID, id string) string {
	return g.itemsURL(tenantID) + "/" + url.PathEscape(id)
}

// ListItems fetches the full item list of a tenant
func (g *HTTPGateway) ListItems(ctx context.Context, tenantID string) ([]domain.InventoryItem, error) {
	env, err := g.call(ctx, OpListItems, http.MethodGet, g.itemsURL(tenantID), tenantID, nil)
	if err != nil {
		return nil, err
	}
	items := env.Items
	if items == nil {
		items = []domain.InventoryItem{}
	}
	for i := range items {
		if items[i].TenantID == "" {
			items[i].TenantID = tenantID
		}
	}
	return items, nil
}

// CreateItem creates an item and returns the canonical stored value
func (g *HTTPGateway) CreateItem(ctx context.Context, tenantID string, draft domain.Draft) (domain.InventoryItem, error) {
	body := CreateItemRequest{TenantID: tenantID, Draft: draft}
	env, err := g.call(ctx, OpCreateItem, http.MethodPost, g.itemsURL(tenantID), tenantID, body)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return itemFrom(env, tenantID, OpCreateItem)
}

// UpdateItem applies a patch and returns the canonical stored value
func (g *HTTPGateway) UpdateItem(ctx context.Context, tenantID, id string, patch domain.Patch) (domain.InventoryItem, error) {
	body := UpdateItemRequest{TenantID: tenantID, Patch: patch}
	env, err := g.call(ctx, OpUpdateItem, http.MethodPut, g.itemURL(tenantID, id), tenantID, body)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return itemFrom(env, tenantID, OpUpdateItem)
}

// DeleteItem deletes an item
func (g *HTTPGateway) DeleteItem(ctx context.Context, tenantID, id string) error {
	_, err := g.call(ctx, OpDeleteItem, http.MethodDelete, g.itemURL(tenantID, id), tenantID, nil)
	return err
}

func itemFrom(env *Envelope, tenantID, op string) (domain.InventoryItem, error) {
	if env.Item == nil {
		return domain.InventoryItem{}, domain.NewNetworkError(op, errors.New("response has no item"))
	}
	item := *env.Item
	if item.TenantID == "" {
		item.TenantID = tenantID
	}
	return item, nil
}

// call runs one request through the rate limiter and circuit breaker, with a client span
func (g *HTTPGateway) call(ctx context.Context, op, method, rawURL, tenantID string, body interface{}) (*Envelope, error) {
	if err := tenant.Validate(tenantID); err != nil {
		return nil, &domain.Error{Kind: domain.KindMissingTenant, Message: "gateway call without tenant", Err: err}
	}

	start := time.Now()
	ctx, span := g.tracer.Start(ctx, "gateway."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.GatewaySpanAttributes(method, rawURL, tenantID)...),
	)
	defer span.End()

	env, err := resilience.Execute(ctx, g.breaker, func(ctx context.Context) (*Envelope, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, domain.NewNetworkError(op, err)
		}
		return g.doRequest(ctx, op, method, rawURL, tenantID, body)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		err = domain.NewNetworkError(op, err)
	}

	duration := time.Since(start)
	tracing.RecordResult(span, err)
	g.logger.GatewayCall(ctx, op, tenantID, duration, err)
	if g.metrics != nil {
		g.metrics.RecordGatewayRequest(op, err, duration)
	}

	return env, err
}

// doRequest performs an HTTP request and decodes the response envelope
func (g *HTTPGateway) doRequest(ctx context.Context, op, method, rawURL, tenantID string, body interface{}) (*Envelope, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(tenant.HeaderTenantID, tenantID)
	req.Header.Set("X-Request-ID", requestID(ctx))
	tracing.InjectTraceContext(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewNetworkError(op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, domain.NewNetworkError(op, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, domain.NewNetworkError(op, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody)))
	}

	var env Envelope
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &env); err != nil {
			if resp.StatusCode >= http.StatusBadRequest {
				return nil, domain.NewServerRejected(http.StatusText(resp.StatusCode))
			}
			return nil, domain.NewNetworkError(op, fmt.Errorf("failed to unmarshal response: %w", err))
		}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		msg := env.Message
		if msg == "" {
			msg = "inventory item not found"
		}
		return nil, &domain.Error{Kind: domain.KindNotFound, Message: msg}
	case resp.StatusCode >= http.StatusBadRequest:
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, domain.NewServerRejected(msg)
	case !env.Success:
		return nil, domain.NewServerRejected(env.Message)
	}

	return &env, nil
}

func requestID(ctx context.Context) string {
	if v, ok := ctx.Value(logging.RequestIDKey).(string); ok && v != "" {
		return v
	}
	return uuid.New().String()
}

func truncate(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
