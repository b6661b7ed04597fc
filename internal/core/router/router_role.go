package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/pkg/ctx"
	"github.com/riveredge/riveredge/pkg/http"
	"github.com/riveredge/riveredge/pkg/http/middleware"
)

func (rt *Router) roleRouter(r fiber.Router, auth fiber.Handler) {
	roleGroup := r.Group("/roles", auth)
	{
		roleGroup.Post("/", rt.guard("role", "create"), rt.createRole)
		roleGroup.Get("/", rt.guard("role", "read"), rt.listRoles)
		roleGroup.Get("/:roleId", rt.guard("role", "read"), rt.getRole)
		roleGroup.Put("/:roleId", rt.guard("role", "update"), rt.updateRole)
		roleGroup.Delete("/:roleId", rt.guard("role", "delete"), rt.deleteRole)

		roleGroup.Get("/:roleId/permissions", rt.guard("role", "read"), rt.rolePermissions)
		roleGroup.Put("/:roleId/permissions", rt.tenantAdminOnly, rt.setRolePermissions)
	}
}

func (rt *Router) createRole(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	var req model.CreateRoleReq
	if err := c.BodyParser(&req); err != nil {
		return http.WithRepErrMsg(c, http.BadRequest.Code, err.Error(), middleware.RequestId(c))
	}
	role, err := rt.roleLogic.CreateRole(ac, &req)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, fiber.Map{"roleId": role.ExternalId})
}

func (rt *Router) listRoles(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	offset, pageSize := rt.pagination(c)
	roles, total, err := rt.roleLogic.ListRoles(ac, offset, pageSize)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, pageResp{List: roles, Total: total})
}

func (rt *Router) getRole(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	role, err := rt.roleLogic.GetRole(ac, c.Params("roleId"))
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, role)
}

func (rt *Router) updateRole(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	var req model.UpdateRoleReq
	if err := c.BodyParser(&req); err != nil {
		return http.WithRepErrMsg(c, http.BadRequest.Code, err.Error(), middleware.RequestId(c))
	}
	if err := rt.roleLogic.UpdateRole(ac, c.Params("roleId"), &req); err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepNotDetail(c)
}

func (rt *Router) deleteRole(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	if err := rt.roleLogic.DeleteRole(ac, c.Params("roleId")); err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepNotDetail(c)
}

func (rt *Router) rolePermissions(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	perms, err := rt.roleLogic.RolePermissions(ac, c.Params("roleId"))
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, perms)
}

func (rt *Router) setRolePermissions(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	var body struct {
		PermissionCodes []string `json:"permissionCodes"`
	}
	if err := c.BodyParser(&body); err != nil {
		return http.WithRepErrMsg(c, http.BadRequest.Code, err.Error(), middleware.RequestId(c))
	}
	if err := rt.roleLogic.SetRolePermissions(ac, c.Params("roleId"), body.PermissionCodes); err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepNotDetail(c)
}
