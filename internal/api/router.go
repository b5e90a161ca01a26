// Package api exposes the inventory cache to dashboard panels over HTTP and WebSocket.
package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/farm-platform/farm-dashboard/internal/cache"
	"github.com/farm-platform/farm-dashboard/internal/controller"
	"github.com/farm-platform/farm-dashboard/pkg/logging"
	"github.com/farm-platform/farm-dashboard/pkg/metrics"
	"github.com/farm-platform/farm-dashboard/pkg/middleware"
	"github.com/farm-platform/farm-dashboard/pkg/resilience"
)

// Dependencies holds what the handlers need
type Dependencies struct {
	ServiceName string
	Cache       *cache.Cache
	Controller  *controller.Controller
	Logger      *logging.Logger
	Metrics     *metrics.Metrics
	Breakers    *resilience.CircuitBreakerRegistry

	// PollContext bounds polling started from the session endpoint. Request contexts end with
	// the request, so they cannot be used.
	PollContext context.Context
}

// NewRouter builds the dashboard gin engine
func NewRouter(deps *Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.PollContext == nil {
		deps.PollContext = context.Background()
	}
	if deps.ServiceName == "" {
		deps.ServiceName = "farm-dashboard"
	}

	config := middleware.DefaultConfig(deps.ServiceName, deps.Logger.Logger)
	config.Metrics = deps.Metrics
	config.Readiness = readiness(deps)

	router := gin.New()
	middleware.Setup(router, config)
	RegisterRoutes(router.Group("/api/v1/inventory"), deps)
	return router
}

// RegisterRoutes mounts the inventory endpoints on group
func RegisterRoutes(group *gin.RouterGroup, deps *Dependencies) {
	group.GET("", getInventoryHandler(deps))
	group.POST("/refresh", refreshHandler(deps))
	group.GET("/status", statusHandler(deps))
	group.GET("/stream", streamHandler(deps))

	alerts := group.Group("/alerts")
	{
		alerts.GET("/low-stock", lowStockHandler(deps))
		alerts.GET("/reorder", reorderHandler(deps))
	}
	group.GET("/distribution", distributionHandler(deps))

	items := group.Group("/items")
	items.Use(activeTenant(deps.Cache))
	{
		items.POST("", addItemHandler(deps))
		items.PUT("/:id", updateItemHandler(deps))
		items.DELETE("/:id", deleteItemHandler(deps))
	}

	session := group.Group("/session")
	{
		session.PUT("/tenant", switchTenantHandler(deps))
		session.DELETE("/tenant", stopSessionHandler(deps))
	}
}

// readiness fails while the gateway circuit is open
func readiness(deps *Dependencies) func() error {
	return func() error {
		if deps.Breakers == nil {
			return nil
		}
		if open := deps.Breakers.Open(); len(open) > 0 {
			return fmt.Errorf("circuit breaker open: %s", strings.Join(open, ", "))
		}
		return nil
	}
}
