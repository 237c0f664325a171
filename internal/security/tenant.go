package security

import (
	"context"
	"net/http"

	"github.com/Epistates/turbomcp-sub009/internal/transport/transportcore"
)

type tenantContextKey struct{}

// TenantFromContext extracts the tenant ID stashed by TenantExtractor.
func TenantFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	tenant, ok := ctx.Value(tenantContextKey{}).(string)
	return tenant, ok
}

// TenantExtractor derives a tenant ID for each request from the
// authenticated OAuth claims (when present) or a configured header
// fallback, and stores it in the request context for downstream handlers
// and the rate limiter's key function.
func TenantExtractor(header string) transportcore.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tenant string
			if claims, ok := transportcore.ClaimsFromContext(r.Context()); ok && claims != nil {
				tenant = claims.Subject
			}
			if tenant == "" && header != "" {
				tenant = r.Header.Get(header)
			}
			if tenant != "" {
				ctx := context.WithValue(r.Context(), tenantContextKey{}, tenant)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}
