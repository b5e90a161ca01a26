package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farm-platform/farm-dashboard/internal/alerting"
	"github.com/farm-platform/farm-dashboard/internal/cache"
	"github.com/farm-platform/farm-dashboard/internal/controller"
	"github.com/farm-platform/farm-dashboard/internal/domain"
	"github.com/farm-platform/farm-dashboard/internal/testutil"
	"github.com/farm-platform/farm-dashboard/pkg/middleware"
	"github.com/farm-platform/farm-dashboard/pkg/resilience"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	gw     *testutil.MockGateway
	cache  *cache.Cache
	ctrl   *controller.Controller
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gw := testutil.NewMockGateway()
	gw.SetItems(testutil.TenantA, testutil.SeedItems()...)
	c := cache.New(gw, nil, nil, nil)
	ctrl := controller.New(c, &controller.Config{PollInterval: time.Hour}, nil)
	t.Cleanup(ctrl.Stop)

	router := NewRouter(&Dependencies{
		Cache:      c,
		Controller: ctrl,
		Breakers:   resilience.NewCircuitBreakerRegistry(nil),
	})
	return &testEnv{gw: gw, cache: c, ctrl: ctrl, router: router}
}

// selectTenant starts polling and waits for the first snapshot
func (e *testEnv) selectTenant(t *testing.T, tenantID string) {
	t.Helper()
	w := e.do(t, http.MethodPut, "/api/v1/inventory/session/tenant", SwitchTenantRequest{TenantID: tenantID}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Eventually(t, func() bool {
		return e.cache.Snapshot().Status == cache.StatusReady
	}, 2*time.Second, 5*time.Millisecond)
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestGetInventory_BeforeTenantSelected(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/inventory", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[InventoryResponse](t, w)
	assert.Equal(t, cache.StatusIdle, resp.Snapshot.Status)
	assert.Equal(t, controller.StateStopped, resp.Polling)
	assert.Equal(t, alerting.StatusNoData, resp.Derived.Status)
	assert.Empty(t, resp.Derived.LowStock)
}

func TestSwitchTenant_StartsPolling(t *testing.T) {
	env := newTestEnv(t)
	env.selectTenant(t, testutil.TenantA)

	w := env.do(t, http.MethodGet, "/api/v1/inventory", nil, nil)
	resp := decode[InventoryResponse](t, w)
	assert.Equal(t, testutil.TenantA, resp.Snapshot.TenantID)
	assert.Len(t, resp.Snapshot.Items, 2)
	assert.Equal(t, controller.StatePolling, resp.Polling)
	assert.Equal(t, alerting.StatusAttentionNeeded, resp.Derived.Status)
}

func TestSwitchTenant_Validation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/v1/inventory/session/tenant", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/api/v1/inventory/session/tenant", SwitchTenantRequest{TenantID: "farm/1"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_TENANT", decode[middleware.APIErrorResponse](t, w).Code)
}

func TestStopSession(t *testing.T) {
	env := newTestEnv(t)
	env.selectTenant(t, testutil.TenantA)

	w := env.do(t, http.MethodDelete, "/api/v1/inventory/session/tenant", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, controller.StateStopped, env.ctrl.State())

	resp := decode[InventoryResponse](t, env.do(t, http.MethodGet, "/api/v1/inventory", nil, nil))
	assert.Empty(t, resp.Snapshot.TenantID)
	assert.Empty(t, resp.Snapshot.Items)

	w = env.do(t, http.MethodPost, "/api/v1/inventory/items", testutil.NewTestDraft(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_TENANT", decode[middleware.APIErrorResponse](t, w).Code)
	w = env.do(t, http.MethodPost, "/api/v1/inventory/refresh", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, env.gw.Calls("create_item"))
	assert.Equal(t, 1, env.gw.Calls("list_items"))
}

func TestAlertEndpoints_Scenario(t *testing.T) {
	env := newTestEnv(t)
	env.selectTenant(t, testutil.TenantA)

	low := decode[LowStockResponse](t, env.do(t, http.MethodGet, "/api/v1/inventory/alerts/low-stock", nil, nil))
	assert.Equal(t, 1, low.Count)
	require.Len(t, low.Items, 1)
	assert.Equal(t, "1", low.Items[0].ID)

	reorder := decode[ReorderResponse](t, env.do(t, http.MethodGet, "/api/v1/inventory/alerts/reorder", nil, nil))
	require.Len(t, reorder.Suggestions, 1)
	assert.Equal(t, "Order Seed A within 5 days if required", reorder.Suggestions[0].Message)

	dist := decode[DistributionResponse](t, env.do(t, http.MethodGet, "/api/v1/inventory/distribution", nil, nil))
	assert.Equal(t, 2, dist.TotalItems)
	require.Len(t, dist.Distribution, 2)
	assert.Equal(t, domain.CategorySeeds, dist.Distribution[0].Category)
	assert.Equal(t, 1, dist.Distribution[0].Value)
	assert.True(t, dist.Distribution[0].Share.Equal(decimal.RequireFromString("0.5")))

	status := decode[StatusResponse](t, env.do(t, http.MethodGet, "/api/v1/inventory/status", nil, nil))
	assert.Equal(t, alerting.StatusAttentionNeeded, status.StockStatus)
	assert.Equal(t, cache.StatusReady, status.CacheStatus)
	assert.Equal(t, controller.StatePolling, status.Polling)
}

func TestRefresh_ReportsFailureInSnapshot(t *testing.T) {
	env := newTestEnv(t)
	env.selectTenant(t, testutil.TenantA)
	env.gw.ListItemsFunc = func(ctx context.Context, tenantID string) ([]domain.InventoryItem, error) {
		return nil, domain.NewNetworkError("list_items", errors.New("dial tcp: refused"))
	}

	w := env.do(t, http.MethodPost, "/api/v1/inventory/refresh", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[InventoryResponse](t, w)
	assert.Equal(t, cache.StatusError, resp.Snapshot.Status)
	assert.Len(t, resp.Snapshot.Items, 2)
	require.NotNil(t, resp.Snapshot.LastError)
	assert.Equal(t, domain.KindNetwork, resp.Snapshot.LastError.Kind)
}

func TestRefresh_SurvivesCancelledRequest(t *testing.T) {
	env := newTestEnv(t)
	env.selectTenant(t, testutil.TenantA)
	env.gw.ListItemsFunc = func(ctx context.Context, tenantID string) ([]domain.InventoryItem, error) {
		if err := ctx.Err(); err != nil {
			return nil, domain.NewNetworkError("list_items", err)
		}
		return testutil.SeedItems(), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/refresh", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	snap := env.cache.Snapshot()
	assert.Equal(t, cache.StatusReady, snap.Status)
	assert.Nil(t, snap.LastError)
	assert.Equal(t, 2, env.gw.Calls("list_items"))
}

func TestRefresh_WithoutTenant(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/inventory/refresh", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_TENANT", decode[middleware.APIErrorResponse](t, w).Code)
}

func TestItemMutations(t *testing.T) {
	env := newTestEnv(t)
	env.selectTenant(t, testutil.TenantA)

	w := env.do(t, http.MethodPost, "/api/v1/inventory/items", testutil.NewTestDraft(), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[domain.InventoryItem](t, w)
	assert.NotEmpty(t, created.ID)
	assert.Len(t, env.cache.Snapshot().Items, 3)

	w = env.do(t, http.MethodPut, "/api/v1/inventory/items/1", map[string]int{"quantity": 30}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 30, decode[domain.InventoryItem](t, w).Quantity)

	w = env.do(t, http.MethodDelete, "/api/v1/inventory/items/"+created.ID, nil, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, env.cache.Snapshot().Items, 2)

	low := decode[LowStockResponse](t, env.do(t, http.MethodGet, "/api/v1/inventory/alerts/low-stock", nil, nil))
	assert.Zero(t, low.Count)
}

func TestItemMutations_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.selectTenant(t, testutil.TenantA)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		setup  func()
		status int
		code   string
	}{
		{
			name: "invalid draft", method: http.MethodPost, path: "/api/v1/inventory/items",
			body:   map[string]interface{}{"name": "", "category": "seeds", "quantity": -1},
			status: http.StatusBadRequest, code: "VALIDATION_ERROR",
		},
		{
			name: "malformed body", method: http.MethodPost, path: "/api/v1/inventory/items",
			body:   "not an object",
			status: http.StatusBadRequest, code: "BAD_REQUEST",
		},
		{
			name: "unknown item", method: http.MethodPut, path: "/api/v1/inventory/items/missing",
			body:   map[string]int{"quantity": 1},
			status: http.StatusNotFound, code: "RESOURCE_NOT_FOUND",
		},
		{
			name: "server rejected", method: http.MethodDelete, path: "/api/v1/inventory/items/1",
			setup: func() {
				env.gw.DeleteItemFunc = func(ctx context.Context, tenantID, id string) error {
					return domain.NewServerRejected("item has open orders")
				}
			},
			status: http.StatusUnprocessableEntity, code: "UPSTREAM_REJECTED",
		},
		{
			name: "gateway down", method: http.MethodPost, path: "/api/v1/inventory/items",
			body: testutil.NewTestDraft(),
			setup: func() {
				env.gw.CreateItemFunc = func(ctx context.Context, tenantID string, draft domain.Draft) (domain.InventoryItem, error) {
					return domain.InventoryItem{}, domain.NewNetworkError("create_item", errors.New("timeout"))
				}
			},
			status: http.StatusBadGateway, code: "UPSTREAM_UNAVAILABLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			before := env.cache.Snapshot()

			w := env.do(t, tt.method, tt.path, tt.body, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode[middleware.APIErrorResponse](t, w).Code)
			assert.Equal(t, before.Items, env.cache.Snapshot().Items)
		})
	}
}

func TestItemMutations_TenantChecks(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/inventory/items", testutil.NewTestDraft(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_TENANT", decode[middleware.APIErrorResponse](t, w).Code)

	env.selectTenant(t, testutil.TenantA)
	w = env.do(t, http.MethodDelete, "/api/v1/inventory/items/1", nil, map[string]string{
		"X-Farm-Tenant-ID": testutil.TenantB,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 0, env.gw.Calls("delete_item"))
}

func TestItemMutations_StaleResponseIsAccepted(t *testing.T) {
	env := newTestEnv(t)
	env.selectTenant(t, testutil.TenantA)

	gate := testutil.NewGate()
	env.gw.CreateItemFunc = func(ctx context.Context, tenantID string, draft domain.Draft) (domain.InventoryItem, error) {
		gate.Wait()
		return domain.InventoryItem{ID: "late", TenantID: tenantID, Name: draft.Name, Category: draft.Category}, nil
	}

	body, err := json.Marshal(testutil.NewTestDraft())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/items", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		done <- w
	}()
	<-gate.Entered()

	require.NoError(t, env.ctrl.Start(context.Background(), testutil.TenantB))
	gate.Release()

	w := <-done
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, testutil.TenantB, env.cache.Snapshot().TenantID)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", nil, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/ready", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/nope", nil, nil).Code)
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.NewValidationError(map[string]string{"name": "required"}, nil), http.StatusBadRequest, "VALIDATION_ERROR"},
		{domain.NewNotFound("x"), http.StatusNotFound, "RESOURCE_NOT_FOUND"},
		{domain.ErrMissingTenant, http.StatusBadRequest, "MISSING_TENANT"},
		{domain.NewServerRejected("locked"), http.StatusUnprocessableEntity, "UPSTREAM_REJECTED"},
		{domain.NewNetworkError("list_items", errors.New("eof")), http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"},
		{domain.NewNetworkError("list_items", context.DeadlineExceeded), http.StatusGatewayTimeout, "TIMEOUT"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			appErr := MapDomainError(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.status, appErr.HTTPStatus)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}

	assert.Nil(t, MapDomainError(nil))
	assert.Equal(t, "locked", MapDomainError(domain.NewServerRejected("locked")).Message)
}
