package access

import (
	"net/http"

	"github.com/noah-isme/pos-gateway/internal/common"
	"github.com/noah-isme/pos-gateway/internal/obs"
)

// Require guards an API route group with the same policy table the terminal
// UI consults, keyed by the page prefix the group serves.
func Require(prefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := common.PrincipalFrom(r.Context())
			if !ok {
				common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "authentication required", nil)
				return
			}
			role := Role(p.Role)
			if !HasAccess(role, prefix) {
				if obs.AccessDeniedTotal != nil {
					obs.AccessDeniedTotal.WithLabelValues(p.Role).Inc()
				}
				common.JSONError(w, http.StatusForbidden, common.CodeForbidden, "role lacks route permission", map[string]any{
					"redirectTo": DefaultRoute(role),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
