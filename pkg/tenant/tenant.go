// Package tenant holds the rules for farm tenant identifiers.
package tenant

import (
	"errors"
	"strings"
)

// HeaderTenantID carries the tenant identifier on every request to and from the dashboard.
const HeaderTenantID = "X-Farm-Tenant-ID"

// Errors for tenant identifier checks
var (
	ErrMissingTenantID = errors.New("tenantId is required")
	ErrInvalidTenantID = errors.New("tenantId contains invalid characters")
)

// Normalize trims surrounding whitespace from a tenant identifier.
func Normalize(tenantID string) string {
	return strings.TrimSpace(tenantID)
}

// Validate checks that a tenant identifier is present and safe to place in a URL path segment.
func Validate(tenantID string) error {
	if tenantID == "" {
		return ErrMissingTenantID
	}
	if strings.ContainsAny(tenantID, "/?#% \t\n") {
		return ErrInvalidTenantID
	}
	return nil
}
