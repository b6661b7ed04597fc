package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/pkg/ctx"
	"github.com/riveredge/riveredge/pkg/http"
	"github.com/riveredge/riveredge/pkg/http/middleware"
)

func (rt *Router) userRouter(r fiber.Router, auth fiber.Handler) {
	userGroup := r.Group("/users", auth)
	{
		userGroup.Get("/me", rt.getCurrentUser)

		userGroup.Post("/", rt.guard("user", "create"), rt.addUser)
		userGroup.Get("/", rt.guard("user", "read"), rt.listUsers)
		userGroup.Get("/:userId", rt.guard("user", "read"), rt.getUser)
		userGroup.Put("/:userId", rt.guard("user", "update"), rt.updateUser)
		userGroup.Delete("/:userId", rt.guard("user", "delete"), rt.deleteUser)

		userGroup.Post("/:userId/roles", rt.tenantAdminOnly, rt.assignRoles)
		userGroup.Delete("/:userId/roles/:roleId", rt.tenantAdminOnly, rt.removeRole)
	}
}

func (rt *Router) getCurrentUser(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	if ac.IsSuperAdmin() {
		return http.WithRepJSON(c, fiber.Map{
			"userId":         ac.UserId,
			"principalClass": string(ac.PrincipalClass),
		})
	}
	info, err := rt.userLogic.GetUser(ac, ac.UserId)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, info)
}

func (rt *Router) addUser(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	var req model.AddUserReq
	if err := c.BodyParser(&req); err != nil {
		return http.WithRepErrMsg(c, http.BadRequest.Code, err.Error(), middleware.RequestId(c))
	}
	user, err := rt.userLogic.AddUser(ac, &req)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, fiber.Map{"userId": user.ExternalId})
}

func (rt *Router) listUsers(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	offset, pageSize := rt.pagination(c)
	users, total, err := rt.userLogic.ListUsers(ac, offset, pageSize)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, pageResp{List: users, Total: total})
}

func (rt *Router) getUser(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	info, err := rt.userLogic.GetUser(ac, c.Params("userId"))
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, info)
}

func (rt *Router) updateUser(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	var req model.UpdateUserReq
	if err := c.BodyParser(&req); err != nil {
		return http.WithRepErrMsg(c, http.BadRequest.Code, err.Error(), middleware.RequestId(c))
	}
	if err := rt.userLogic.UpdateUser(ac, c.Params("userId"), &req); err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepNotDetail(c)
}

func (rt *Router) deleteUser(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	if err := rt.userLogic.DeleteUser(ac, c.Params("userId")); err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepNotDetail(c)
}

func (rt *Router) assignRoles(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	var body struct {
		RoleIds []string `json:"roleIds"`
	}
	if err := c.BodyParser(&body); err != nil {
		return http.WithRepErrMsg(c, http.BadRequest.Code, err.Error(), middleware.RequestId(c))
	}
	if err := rt.userLogic.AssignRoles(ac, c.Params("userId"), body.RoleIds); err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepNotDetail(c)
}

func (rt *Router) removeRole(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	if err := rt.userLogic.RemoveRole(ac, c.Params("userId"), c.Params("roleId")); err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepNotDetail(c)
}
