// Package middleware carries the echo middleware shared by every API route:
// tenant authentication and the request-scoped context keys it populates.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/docflow-io/docflow/internal/tenant"
)

// HeaderTenant names the request header carrying the tenant identifier.
const HeaderTenant = "X-Tenant"

const bearerPrefix = "Bearer "

// TenantAuth authenticates every request: the Authorization header must
// carry a non-empty bearer token and the X-Tenant header must classify OK
// against the allowlist. Missing or malformed identity is 401, an unknown
// tenant is 403. The validated tenant ID is stored on the request context
// for handlers via GetTenantID.
//
// The bearer token itself is opaque here; gateway-level verification is
// assumed upstream.
func TenantAuth(validator *tenant.Validator, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !hasBearerToken(c.Request().Header.Get(echo.HeaderAuthorization)) {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error":  "tenant_missing",
					"detail": "authorization bearer token is required",
				})
			}

			tenantID := c.Request().Header.Get(HeaderTenant)
			switch verdict := validator.Validate(tenantID); verdict {
			case tenant.VerdictOK:
			case tenant.VerdictMissing:
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error":  "tenant_missing",
					"detail": "the " + HeaderTenant + " header is required",
				})
			case tenant.VerdictMalformed:
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error":  "tenant_malformed",
					"detail": "tenant identifiers are 1-64 chars of [A-Za-z0-9_-]",
				})
			default:
				logger.Warn("request for unknown tenant",
					zap.String("tenant_id", tenantID),
					zap.String("path", c.Request().URL.Path),
				)
				return c.JSON(http.StatusForbidden, map[string]string{
					"error":  "tenant_unknown",
					"detail": "tenant is not allowlisted",
				})
			}

			ctx := WithTenantID(c.Request().Context(), tenantID)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func hasBearerToken(authz string) bool {
	if len(authz) <= len(bearerPrefix) {
		return false
	}
	if !strings.EqualFold(authz[:len(bearerPrefix)], bearerPrefix) {
		return false
	}
	return strings.TrimSpace(authz[len(bearerPrefix):]) != ""
}
