package stub

import (
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/farm-platform/farm-dashboard/internal/domain"
	"github.com/farm-platform/farm-dashboard/internal/gateway"
	"github.com/farm-platform/farm-dashboard/pkg/logging"
	"github.com/farm-platform/farm-dashboard/pkg/metrics"
	"github.com/farm-platform/farm-dashboard/pkg/middleware"
)

const serviceName = "inventory-stub"

// NewRouter builds the stub's gin engine. m may be nil.
func NewRouter(store *Store, logger *logging.Logger, m *metrics.Metrics) *gin.Engine {
	if logger == nil {
		logger = logging.NewNop()
	}

	config := middleware.DefaultConfig(serviceName, logger.Logger)
	config.Metrics = m

	router := gin.New()
	middleware.Setup(router, config)

	inventory := router.Group("/api/v1/tenants/:tenantId/inventory")
	inventory.Use(middleware.RequireTenant())
	{
		inventory.GET("", listItemsHandler(store))
		inventory.POST("", createItemHandler(store, logger))
		inventory.PUT("/:id", updateItemHandler(store, logger))
		inventory.DELETE("/:id", deleteItemHandler(store, logger))
	}
	return router
}

func reject(c *gin.Context, status int, message string) {
	c.JSON(status, gateway.Envelope{Success: false, Message: message})
}

func rejectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		reject(c, http.StatusNotFound, domain.UserMessage(err))
	case errors.Is(err, domain.ErrValidation):
		reject(c, http.StatusBadRequest, validationMessage(err))
	default:
		reject(c, http.StatusInternalServerError, "internal error")
	}
}

func validationMessage(err error) string {
	var domErr *domain.Error
	if errors.As(err, &domErr) {
		if len(domErr.Fields) == 0 {
			return domErr.Message
		}
		fields := make([]string, 0, len(domErr.Fields))
		for field := range domErr.Fields {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		return "invalid " + fields[0] + ": " + domErr.Fields[fields[0]]
	}
	return err.Error()
}

func listItemsHandler(store *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		items := store.List(middleware.TenantFrom(c))
		c.JSON(http.StatusOK, gateway.Envelope{Success: true, Items: items})
	}
}

func createItemHandler(store *Store, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := middleware.TenantFrom(c)

		var req gateway.CreateItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			reject(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.TenantID != "" && req.TenantID != tenantID {
			reject(c, http.StatusBadRequest, "tenantId does not match path")
			return
		}

		draft := req.Draft.Normalize()
		if err := domain.ValidateDraft(draft); err != nil {
			rejectError(c, err)
			return
		}

		item := store.Create(tenantID, draft)
		logger.Info("Inventory item created", "tenantId", tenantID, "itemId", item.ID)
		c.JSON(http.StatusCreated, gateway.Envelope{Success: true, Item: &item})
	}
}

func updateItemHandler(store *Store, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := middleware.TenantFrom(c)
		id := c.Param("id")

		var req gateway.UpdateItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			reject(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.TenantID != "" && req.TenantID != tenantID {
			reject(c, http.StatusBadRequest, "tenantId does not match path")
			return
		}

		patch := req.Patch.Normalize()
		if err := domain.ValidatePatch(patch); err != nil {
			rejectError(c, err)
			return
		}

		item, err := store.Update(tenantID, id, patch)
		if err != nil {
			rejectError(c, err)
			return
		}

		logger.Info("Inventory item updated", "tenantId", tenantID, "itemId", id)
		c.JSON(http.StatusOK, gateway.Envelope{Success: true, Item: &item})
	}
}

func deleteItemHandler(store *Store, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := middleware.TenantFrom(c)
		id := c.Param("id")

		if err := store.Delete(tenantID, id); err != nil {
			rejectError(c, err)
			return
		}

		logger.Info("Inventory item deleted", "tenantId", tenantID, "itemId", id)
		c.JSON(http.StatusOK, gateway.Envelope{Success: true})
	}
}
