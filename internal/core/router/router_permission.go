package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/pkg/ctx"
	"github.com/riveredge/riveredge/pkg/http"
	"github.com/riveredge/riveredge/pkg/http/middleware"
)

func (rt *Router) permissionRouter(r fiber.Router, auth fiber.Handler) {
	permGroup := r.Group("/permissions", auth)
	{
		permGroup.Post("/", rt.tenantAdminOnly, rt.createPermission)
		permGroup.Get("/", rt.listPermissions)
		permGroup.Delete("/:code", rt.tenantAdminOnly, rt.deletePermission)

		// Any authenticated caller may ask what it can do.
		permGroup.Post("/check", rt.checkPermission)
	}
}

func (rt *Router) createPermission(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	var req model.CreatePermissionReq
	if err := c.BodyParser(&req); err != nil {
		return http.WithRepErrMsg(c, http.BadRequest.Code, err.Error(), middleware.RequestId(c))
	}
	perm, err := rt.permLogic.CreatePermission(ac, &req)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, fiber.Map{"code": perm.Code})
}

func (rt *Router) listPermissions(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	offset, pageSize := rt.pagination(c)
	perms, total, err := rt.permLogic.ListPermissions(ac, offset, pageSize)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, pageResp{List: perms, Total: total})
}

func (rt *Router) deletePermission(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	if err := rt.permLogic.DeletePermission(ac, c.Params("code")); err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepNotDetail(c)
}

// checkPermission runs the decision engine for the caller and reports the
// verdict with its reason. Request attributes feed policy conditions.
func (rt *Router) checkPermission(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	var body struct {
		Resource string         `json:"resource"`
		Action   string         `json:"action"`
		Attrs    map[string]any `json:"attrs"`
	}
	if err := c.BodyParser(&body); err != nil {
		return http.WithRepErrMsg(c, http.BadRequest.Code, err.Error(), middleware.RequestId(c))
	}
	if body.Resource == "" || body.Action == "" {
		return http.WithRepErrMsg(c, http.BadRequest.Code, "resource and action are required", middleware.RequestId(c))
	}
	decision, err := rt.decisionLogic.Decide(ac, body.Resource, body.Action, body.Attrs)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, decision)
}
