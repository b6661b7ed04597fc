package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/riveredge/riveredge/pkg/ctx"
	"github.com/riveredge/riveredge/pkg/http"
	"github.com/riveredge/riveredge/pkg/http/middleware"
)

func (rt *Router) applicationRouter(r fiber.Router, auth fiber.Handler) {
	appGroup := r.Group("/applications", auth)
	{
		appGroup.Get("/", rt.applicationCatalog)

		appGroup.Post("/:appCode/install", rt.tenantAdminOnly, rt.installApplication)
		appGroup.Put("/:appCode/enable", rt.tenantAdminOnly, rt.enableApplication)
		appGroup.Put("/:appCode/disable", rt.tenantAdminOnly, rt.disableApplication)
		appGroup.Delete("/:appCode", rt.tenantAdminOnly, rt.uninstallApplication)
	}
}

func (rt *Router) applicationCatalog(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	catalog, err := rt.appLogic.Catalog(ac)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, catalog)
}

func (rt *Router) installApplication(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	installation, err := rt.appLogic.Install(ac, c.Params("appCode"))
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, installation)
}

func (rt *Router) enableApplication(c *fiber.Ctx) error {
	return rt.setApplicationActive(c, true)
}

func (rt *Router) disableApplication(c *fiber.Ctx) error {
	return rt.setApplicationActive(c, false)
}

func (rt *Router) setApplicationActive(c *fiber.Ctx, active bool) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	if err := rt.appLogic.SetActive(ac, c.Params("appCode"), active); err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepNotDetail(c)
}

func (rt *Router) uninstallApplication(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	if err := rt.appLogic.Uninstall(ac, c.Params("appCode")); err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepNotDetail(c)
}
