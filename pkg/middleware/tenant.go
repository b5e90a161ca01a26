package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/farm-platform/farm-dashboard/pkg/errors"
	"github.com/farm-platform/farm-dashboard/pkg/logging"
	"github.com/farm-platform/farm-dashboard/pkg/tenant"
)

// ContextKeyTenantID is the gin context key holding the request's tenant
const ContextKeyTenantID = "tenantId"

// RequireTenant extracts the tenant from the X-Farm-Tenant-ID header, or from the :tenantId
// path parameter when the route declares one, and rejects requests without it.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := tenant.Normalize(c.Param("tenantId"))
		if tenantID == "" {
			tenantID = tenant.Normalize(c.GetHeader(tenant.HeaderTenantID))
		}

		if err := tenant.Validate(tenantID); err != nil {
			AbortWithAppError(c, errors.ErrMissingTenant().Wrap(err))
			return
		}

		c.Set(ContextKeyTenantID, tenantID)
		c.Request = c.Request.WithContext(logging.ContextWithTenantID(c.Request.Context(), tenantID))
		c.Next()
	}
}

// TenantFrom returns the tenant placed on the gin context by RequireTenant
func TenantFrom(c *gin.Context) string {
	return c.GetString(ContextKeyTenantID)
}
