package access

import (
	"net/http"
	"strings"

	"github.com/noah-isme/pos-gateway/internal/common"
)

// Handler exposes the role policy so the terminal's client-side guard renders
// from the same table the server enforces.
type Handler struct{}

// Policy returns the caller's allowed route prefixes and landing page.
func (Handler) Policy(w http.ResponseWriter, r *http.Request) {
	p, ok := common.PrincipalFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "authentication required", nil)
		return
	}
	policy, known := Lookup(Role(p.Role))
	if !known {
		common.JSONError(w, http.StatusForbidden, common.CodeForbidden, "unknown role", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"role":                 p.Role,
		"allowedRoutePrefixes": policy.Prefixes,
		"defaultRoute":         policy.DefaultRoute,
	}})
}

// Check answers whether the caller may visit ?path= and where to redirect
// otherwise. The UI guard calls this on every navigation.
func (Handler) Check(w http.ResponseWriter, r *http.Request) {
	p, ok := common.PrincipalFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "authentication required", nil)
		return
	}
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "path query parameter is required", nil)
		return
	}
	role := Role(p.Role)
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"allowed":    HasAccess(role, path),
		"redirectTo": DefaultRoute(role),
	}})
}
