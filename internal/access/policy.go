package access

import (
	"errors"
	"strings"
)

// ErrDenied indicates the role may not visit the requested path.
var ErrDenied = errors.New("access: denied")

// Role identifies a class of terminal user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleCashier Role = "cashier"
	RoleKitchen Role = "kitchen"
	RoleWaiter  Role = "waiter"
)

// Policy lists the route prefixes a role may visit and where to land after a
// denial or a fresh login.
type Policy struct {
	Prefixes     []string `json:"allowedRoutePrefixes"`
	DefaultRoute string   `json:"defaultRoute"`
}

// policies is the single canonical table. The HTTP guard middleware and the
// policy endpoint the terminal UI reads both consult this map, so the two can
// never drift apart.
var policies = map[Role]Policy{
	RoleAdmin: {
		Prefixes:     []string{"/admin", "/pos", "/orders", "/kitchen"},
		DefaultRoute: "/admin/dashboard",
	},
	RoleManager: {
		Prefixes:     []string{"/admin", "/pos", "/orders"},
		DefaultRoute: "/admin/dashboard",
	},
	RoleCashier: {
		Prefixes:     []string{"/pos", "/orders"},
		DefaultRoute: "/pos",
	},
	RoleWaiter: {
		Prefixes:     []string{"/pos", "/orders"},
		DefaultRoute: "/pos",
	},
	RoleKitchen: {
		Prefixes:     []string{"/kitchen"},
		DefaultRoute: "/kitchen",
	},
}

// Lookup returns the policy for a role. Unknown roles have no policy.
func Lookup(role Role) (Policy, bool) {
	p, ok := policies[role]
	return p, ok
}

// HasAccess reports whether the path falls under one of the role's allowed
// prefixes. Unknown roles are always denied.
func HasAccess(role Role, path string) bool {
	p, ok := policies[role]
	if !ok {
		return false
	}
	for _, prefix := range p.Prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// DefaultRoute returns the landing page used for redirect-on-denial. Unknown
// roles land on the login page.
func DefaultRoute(role Role) string {
	if p, ok := policies[role]; ok {
		return p.DefaultRoute
	}
	return "/login"
}
