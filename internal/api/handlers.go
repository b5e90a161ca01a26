package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farm-platform/farm-dashboard/internal/cache"
	"github.com/farm-platform/farm-dashboard/internal/domain"
	apperrors "github.com/farm-platform/farm-dashboard/pkg/errors"
	"github.com/farm-platform/farm-dashboard/pkg/logging"
	"github.com/farm-platform/farm-dashboard/pkg/middleware"
	"github.com/farm-platform/farm-dashboard/pkg/tenant"
)

func newResponder(c *gin.Context, deps *Dependencies) *middleware.ErrorResponder {
	return middleware.NewErrorResponder(c, deps.Logger.Logger, MapDomainError)
}

// respondMutationError renders a mutation failure. Stale responses are never shown to users, so
// they are acknowledged without a body.
func respondMutationError(c *gin.Context, deps *Dependencies, err error) {
	if errors.Is(err, domain.ErrStaleResponse) {
		c.Status(http.StatusAccepted)
		return
	}
	newResponder(c, deps).RespondWithError(err)
}

// activeTenant rejects item requests addressed to a tenant other than the one being polled.
// The header is optional.
func activeTenant(c *cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		requested := tenant.Normalize(ctx.GetHeader(tenant.HeaderTenantID))
		active := c.TenantID()
		if active == "" {
			middleware.AbortWithAppError(ctx, apperrors.ErrMissingTenant())
			return
		}
		if requested != "" && requested != active {
			middleware.AbortWithAppError(ctx, apperrors.ErrTenantMismatch(requested, active))
			return
		}
		ctx.Set(middleware.ContextKeyTenantID, active)
		ctx.Request = ctx.Request.WithContext(logging.ContextWithTenantID(ctx.Request.Context(), active))
		ctx.Next()
	}
}

func inventoryResponse(deps *Dependencies, snap cache.Snapshot) InventoryResponse {
	return InventoryResponse{
		Snapshot: snap,
		Derived:  deps.Cache.DerivedFor(snap),
		Polling:  deps.Controller.State(),
	}
}

func getInventoryHandler(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, inventoryResponse(deps, deps.Cache.Snapshot()))
	}
}

// refreshHandler triggers a manual refresh. Refresh failures are reported in the returned
// snapshot's lastError, like any other refresh. The refresh outlives the request: every
// subscriber sees its outcome, so a caller that disconnects must not cancel it.
func refreshHandler(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithoutCancel(c.Request.Context())
		if err := deps.Controller.Refresh(ctx); errors.Is(err, domain.ErrMissingTenant) {
			newResponder(c, deps).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, inventoryResponse(deps, deps.Cache.Snapshot()))
	}
}

func addItemHandler(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var draft domain.Draft
		if appErr := middleware.BindJSON(c, &draft); appErr != nil {
			newResponder(c, deps).RespondWithAppError(appErr)
			return
		}

		item, err := deps.Cache.AddItem(c.Request.Context(), draft)
		if err != nil {
			respondMutationError(c, deps, err)
			return
		}

		c.JSON(http.StatusCreated, item)
	}
}

func updateItemHandler(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch domain.Patch
		if appErr := middleware.BindJSON(c, &patch); appErr != nil {
			newResponder(c, deps).RespondWithAppError(appErr)
			return
		}

		item, err := deps.Cache.UpdateItem(c.Request.Context(), c.Param("id"), patch)
		if err != nil {
			respondMutationError(c, deps, err)
			return
		}

		c.JSON(http.StatusOK, item)
	}
}

func deleteItemHandler(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.Cache.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
			respondMutationError(c, deps, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func lowStockHandler(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := deps.Cache.Snapshot()
		low := deps.Cache.DerivedFor(snap).LowStock
		c.JSON(http.StatusOK, LowStockResponse{
			TenantID: snap.TenantID,
			Items:    low,
			Count:    len(low),
		})
	}
}

func reorderHandler(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := deps.Cache.Snapshot()
		c.JSON(http.StatusOK, ReorderResponse{
			TenantID:    snap.TenantID,
			Suggestions: deps.Cache.DerivedFor(snap).Suggestions,
		})
	}
}

func distributionHandler(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := deps.Cache.Snapshot()
		c.JSON(http.StatusOK, DistributionResponse{
			TenantID:     snap.TenantID,
			Distribution: deps.Cache.DerivedFor(snap).Distribution,
			TotalItems:   len(snap.Items),
		})
	}
}

func statusHandler(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := deps.Cache.Snapshot()
		resp := StatusResponse{
			TenantID:    snap.TenantID,
			StockStatus: deps.Cache.DerivedFor(snap).Status,
			CacheStatus: snap.Status,
			Polling:     deps.Controller.State(),
			LastError:   snap.LastError,
			Version:     snap.Version,
		}
		if deps.Breakers != nil {
			resp.Breakers = deps.Breakers.Status()
		}
		c.JSON(http.StatusOK, resp)
	}
}

// switchTenantHandler starts polling for the requested tenant, replacing the current session
func switchTenantHandler(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SwitchTenantRequest
		if appErr := middleware.BindJSON(c, &req); appErr != nil {
			newResponder(c, deps).RespondWithAppError(appErr)
			return
		}

		if err := deps.Controller.Start(deps.PollContext, req.TenantID); err != nil {
			newResponder(c, deps).RespondWithError(err)
			return
		}

		deps.Logger.WithTenant(deps.Controller.TenantID()).Info("Dashboard tenant selected")
		c.JSON(http.StatusOK, inventoryResponse(deps, deps.Cache.Snapshot()))
	}
}

func stopSessionHandler(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		deps.Controller.Stop()
		c.Status(http.StatusNoContent)
	}
}
