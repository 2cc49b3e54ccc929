package middleware

import "context"

// Context keys for request-scoped identity resolved by TenantAuth.
type contextKey string

// TenantIDKey is the context key for the validated tenant identifier.
const TenantIDKey contextKey = "tenant_id"

// WithTenantID returns a new context with the tenant ID set.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// GetTenantID extracts the tenant ID from the context.
func GetTenantID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(TenantIDKey).(string)
	return v, ok
}
