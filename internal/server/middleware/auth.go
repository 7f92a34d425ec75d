// Package middleware contains HTTP middleware for the engine API.
package middleware

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"cartflow/internal/auth"
	"cartflow/internal/store"
)

// tenantKey is the context key for the authenticated tenant.
type tenantKey struct{}

// AuthMiddleware resolves the Bearer API key to a tenant and stores it
// on the request context. Every tenant-scoped operation downstream
// reads the tenant from there, never from the request body.
func AuthMiddleware(s store.TenantStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}

			hash := auth.HashKey(parts[1])

			tenant, err := s.GetTenantByAPIKeyHash(r.Context(), hash)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					http.Error(w, "Invalid API key", http.StatusUnauthorized)
					return
				}
				http.Error(w, "Internal error", http.StatusInternalServerError)
				return
			}
			if tenant == nil {
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), tenantKey{}, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewContextWithTenant returns a context carrying the given tenant.
func NewContextWithTenant(ctx context.Context, t *store.Tenant) context.Context {
	return context.WithValue(ctx, tenantKey{}, t)
}

// TenantFromContext extracts the authenticated tenant from the context.
func TenantFromContext(ctx context.Context) (*store.Tenant, bool) {
	t, ok := ctx.Value(tenantKey{}).(*store.Tenant)
	return t, ok
}
