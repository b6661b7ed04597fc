package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/riveredge/riveredge/pkg/ctx"
	"github.com/riveredge/riveredge/pkg/http"
	"github.com/riveredge/riveredge/pkg/http/middleware"
)

func (rt *Router) menuRouter(r fiber.Router, auth fiber.Handler) {
	menuGroup := r.Group("/menus", auth)
	{
		menuGroup.Get("/", rt.userMenu)
	}
}

// userMenu returns the caller's menu tree, filtered to installed active
// applications and the permissions the caller actually holds.
func (rt *Router) userMenu(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	tree, err := rt.menuLogic.UserMenu(ac)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, tree)
}
