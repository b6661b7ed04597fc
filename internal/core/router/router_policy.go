package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/pkg/ctx"
	"github.com/riveredge/riveredge/pkg/http"
	"github.com/riveredge/riveredge/pkg/http/middleware"
)

func (rt *Router) policyRouter(r fiber.Router, auth fiber.Handler) {
	policyGroup := r.Group("/policies", auth, rt.tenantAdminOnly)
	{
		policyGroup.Post("/", rt.createPolicy)
		policyGroup.Get("/", rt.listPolicies)
		policyGroup.Get("/:policyId", rt.getPolicy)
		policyGroup.Put("/:policyId/enable", rt.enablePolicy)
		policyGroup.Put("/:policyId/disable", rt.disablePolicy)
		policyGroup.Delete("/:policyId", rt.deletePolicy)
	}
}

func (rt *Router) groupRouter(r fiber.Router, auth fiber.Handler) {
	groupGroup := r.Group("/groups", auth, rt.tenantAdminOnly)
	{
		groupGroup.Post("/", rt.createGroup)
		groupGroup.Post("/:groupCode/members", rt.addGroupMember)
	}
}

func (rt *Router) createGroup(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	var req model.CreateGroupReq
	if err := c.BodyParser(&req); err != nil {
		return http.WithRepErrMsg(c, http.BadRequest.Code, err.Error(), middleware.RequestId(c))
	}
	group, err := rt.policyLogic.CreateGroup(ac, &req)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, fiber.Map{"groupId": group.ExternalId, "code": group.Code})
}

func (rt *Router) addGroupMember(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	var req model.AddGroupMemberReq
	if err := c.BodyParser(&req); err != nil {
		return http.WithRepErrMsg(c, http.BadRequest.Code, err.Error(), middleware.RequestId(c))
	}
	if req.UserId == "" {
		return http.WithRepErrMsg(c, http.BadRequest.Code, "userId is required", middleware.RequestId(c))
	}
	if err := rt.policyLogic.AddGroupMember(ac, c.Params("groupCode"), req.UserId); err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepNotDetail(c)
}

func (rt *Router) createPolicy(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	var req model.CreatePolicyReq
	if err := c.BodyParser(&req); err != nil {
		return http.WithRepErrMsg(c, http.BadRequest.Code, err.Error(), middleware.RequestId(c))
	}
	policy, err := rt.policyLogic.CreatePolicy(ac, &req)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, fiber.Map{"policyId": policy.ExternalId})
}

func (rt *Router) listPolicies(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	offset, pageSize := rt.pagination(c)
	policies, total, err := rt.policyLogic.ListPolicies(ac, offset, pageSize)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, pageResp{List: policies, Total: total})
}

func (rt *Router) getPolicy(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	policy, err := rt.policyLogic.GetPolicy(ac, c.Params("policyId"))
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, policy)
}

func (rt *Router) enablePolicy(c *fiber.Ctx) error {
	return rt.setPolicyEnabled(c, model.FlagEnabled)
}

func (rt *Router) disablePolicy(c *fiber.Ctx) error {
	return rt.setPolicyEnabled(c, model.FlagDisabled)
}

func (rt *Router) setPolicyEnabled(c *fiber.Ctx, enabled int) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	if err := rt.policyLogic.SetPolicyEnabled(ac, c.Params("policyId"), enabled); err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepNotDetail(c)
}

func (rt *Router) deletePolicy(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	if err := rt.policyLogic.DeletePolicy(ac, c.Params("policyId")); err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepNotDetail(c)
}
