package middleware

import "github.com/gofiber/fiber/v2"

const (
	// TenantIDHeader carries the verified tenant identity. It is set by the
	// upstream auth gateway; this service never authenticates, it only scopes
	// every query by the tenant it is handed.
	TenantIDHeader = "X-Tenant-ID"
	// TenantIDLocalKey is the key used to store the tenant ID in Fiber's context locals.
	TenantIDLocalKey = "tenant_id"
)

// Tenant requires a tenant identity on every request it guards.
// Requests without one never reach a handler.
func Tenant() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := c.Get(TenantIDHeader)
		if tenantID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "tenant identity required")
		}

		c.Locals(TenantIDLocalKey, tenantID)

		return c.Next()
	}
}

// TenantFromCtx extracts the tenant ID stored by Tenant.
func TenantFromCtx(c *fiber.Ctx) string {
	if v, ok := c.Locals(TenantIDLocalKey).(string); ok {
		return v
	}
	return ""
}
