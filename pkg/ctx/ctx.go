// Package ctx carries the per-request identity envelope. The authorization
// middleware populates an AuthContext before any handler runs; downstream
// code obtains the tenant id only through this package.
package ctx

import (
	"github.com/gofiber/fiber/v2"
	"github.com/riveredge/riveredge/pkg/errs"
)

// PrincipalClass distinguishes the two disjoint principal classes.
type PrincipalClass string

const (
	PrincipalUser       PrincipalClass = "user"
	PrincipalSuperAdmin PrincipalClass = "platform_superadmin"
)

const localsKey = "authContext"

// AuthContext binds (principal, tenant) to the current request.
// TenantId is 0 for platform-scoped principals.
type AuthContext struct {
	PrincipalClass PrincipalClass
	UserId         string // external id of the principal
	TenantId       uint64
	IsTenantAdmin  bool
	RequestId      string
	ClientIp       string
}

// IsSuperAdmin reports whether the principal is the platform superadmin.
func (a *AuthContext) IsSuperAdmin() bool {
	return a.PrincipalClass == PrincipalSuperAdmin
}

// Bind stores the AuthContext on the request.
func Bind(c *fiber.Ctx, ac *AuthContext) {
	c.Locals(localsKey, ac)
}

// FromFiber returns the AuthContext bound to the request. Reaching for the
// tenant id without a bound context is a programming error and surfaces as
// Unauthorized.
func FromFiber(c *fiber.Ctx) (*AuthContext, error) {
	ac, ok := c.Locals(localsKey).(*AuthContext)
	if !ok || ac == nil {
		return nil, errs.Unauthorizedf("no auth context bound to request")
	}
	return ac, nil
}
