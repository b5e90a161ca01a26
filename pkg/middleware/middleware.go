// Package middleware holds the gin middleware and the health, readiness and metrics endpoints
// shared by the dashboard and the inventory stub.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/farm-platform/farm-dashboard/pkg/metrics"
	"github.com/farm-platform/farm-dashboard/pkg/tenant"
)

// Housekeeping endpoints. Requests to them are not traced, logged or counted.
const (
	PathHealth  = "/health"
	PathReady   = "/ready"
	PathMetrics = "/metrics"
)

func isHousekeeping(path string) bool {
	return path == PathHealth || path == PathReady || path == PathMetrics
}

// Config holds middleware configuration
type Config struct {
	Logger        *slog.Logger
	ServiceName   string
	Metrics       *metrics.Metrics // nil disables request metrics and /metrics
	Readiness     func() error     // nil reports ready
	EnableCORS    bool
	EnableTracing bool
}

// DefaultConfig returns a configuration with CORS and tracing enabled
func DefaultConfig(serviceName string, logger *slog.Logger) *Config {
	return &Config{
		Logger:        logger,
		ServiceName:   serviceName,
		EnableCORS:    true,
		EnableTracing: true,
	}
}

// Setup installs the middleware chain and the housekeeping endpoints on router. Routes registered
// afterwards run behind the chain; unmatched paths get a ROUTE_NOT_FOUND error body.
func Setup(router *gin.Engine, config *Config) {
	router.Use(Recovery(config.Logger), RequestID())
	if config.EnableTracing {
		router.Use(Tracing(config.ServiceName))
	}
	router.Use(Logger(config.Logger))
	if config.EnableCORS {
		router.Use(CORS())
	}
	if config.Metrics != nil {
		router.Use(MetricsMiddleware(config.Metrics))
	}
	router.Use(ErrorHandler(config.Logger))

	router.GET(PathHealth, healthHandler(config.ServiceName))
	router.GET(PathReady, readyHandler(config.ServiceName, config.Readiness))
	if config.Metrics != nil {
		router.GET(PathMetrics, gin.WrapH(config.Metrics.Handler()))
	}
	router.NoRoute(noRouteHandler)
}

var corsAllowHeaders = strings.Join([]string{
	"Origin", "Content-Type", "Accept", "Authorization", HeaderRequestID, tenant.HeaderTenantID,
}, ", ")

// CORS lets browser panels on other origins call the API and read the correlation headers
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", corsAllowHeaders)
		c.Header("Access-Control-Expose-Headers", HeaderRequestID+", "+HeaderTraceID)
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func healthHandler(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	}
}

func readyHandler(serviceName string, check func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "not ready",
					"service": serviceName,
					"error":   err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "service": serviceName})
	}
}

func noRouteHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, APIErrorResponse{
		Code:      "ROUTE_NOT_FOUND",
		Message:   "The requested resource was not found",
		RequestID: requestIDFrom(c),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request.URL.Path,
	})
}
