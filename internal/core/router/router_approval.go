package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/pkg/ctx"
	"github.com/riveredge/riveredge/pkg/http"
	"github.com/riveredge/riveredge/pkg/http/middleware"
)

func (rt *Router) approvalRouter(r fiber.Router, auth fiber.Handler) {
	approvalGroup := r.Group("/approvals", auth)
	{
		flowGroup := approvalGroup.Group("/flows", rt.tenantAdminOnly)
		{
			flowGroup.Post("/", rt.createFlow)
			flowGroup.Get("/", rt.listFlows)
			flowGroup.Put("/:flowId/activate", rt.activateFlow)
			flowGroup.Put("/:flowId/deactivate", rt.deactivateFlow)
		}

		approvalGroup.Post("/submit", rt.submitApproval)
		approvalGroup.Get("/tasks/my", rt.myTasks)
		approvalGroup.Post("/tasks/:taskId/decide", rt.decideTask)
		approvalGroup.Get("/instances/:instanceId", rt.instanceStatus)
		approvalGroup.Post("/instances/:instanceId/cancel", rt.cancelInstance)
		approvalGroup.Get("/entities/:entityType/:entityId", rt.entityInstances)
	}
}

func (rt *Router) createFlow(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	var req model.CreateFlowReq
	if err := c.BodyParser(&req); err != nil {
		return http.WithRepErrMsg(c, http.BadRequest.Code, err.Error(), middleware.RequestId(c))
	}
	flow, err := rt.approvalLogic.CreateFlow(ac, &req)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, fiber.Map{"flowId": flow.ExternalId})
}

func (rt *Router) listFlows(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	offset, pageSize := rt.pagination(c)
	flows, total, err := rt.approvalLogic.ListFlows(ac, offset, pageSize)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, pageResp{List: flows, Total: total})
}

func (rt *Router) activateFlow(c *fiber.Ctx) error {
	return rt.setFlowActive(c, true)
}

func (rt *Router) deactivateFlow(c *fiber.Ctx) error {
	return rt.setFlowActive(c, false)
}

func (rt *Router) setFlowActive(c *fiber.Ctx, active bool) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	if err := rt.approvalLogic.SetFlowActive(ac, c.Params("flowId"), active); err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepNotDetail(c)
}

func (rt *Router) submitApproval(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	var req model.SubmitApprovalReq
	if err := c.BodyParser(&req); err != nil {
		return http.WithRepErrMsg(c, http.BadRequest.Code, err.Error(), middleware.RequestId(c))
	}
	instance, err := rt.approvalLogic.Submit(ac, &req)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, instance)
}

func (rt *Router) myTasks(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	offset, pageSize := rt.pagination(c)
	tasks, total, err := rt.approvalLogic.MyTasks(ac, offset, pageSize)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, pageResp{List: tasks, Total: total})
}

func (rt *Router) decideTask(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	var req model.DecideTaskReq
	if err := c.BodyParser(&req); err != nil {
		return http.WithRepErrMsg(c, http.BadRequest.Code, err.Error(), middleware.RequestId(c))
	}
	instance, err := rt.approvalLogic.Decide(ac, c.Params("taskId"), &req)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, instance)
}

func (rt *Router) instanceStatus(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	instance, err := rt.approvalLogic.Status(ac, c.Params("instanceId"))
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, instance)
}

func (rt *Router) cancelInstance(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	if err := rt.approvalLogic.Cancel(ac, c.Params("instanceId")); err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepNotDetail(c)
}

func (rt *Router) entityInstances(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	instances, err := rt.approvalLogic.InstancesOfEntity(ac, c.Params("entityType"), c.Params("entityId"))
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, instances)
}
