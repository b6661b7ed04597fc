package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/pkg/http"
	"github.com/riveredge/riveredge/pkg/http/middleware"
)

// Tenant lifecycle is platform-scoped: every route below requires the
// superadmin.
func (rt *Router) tenantRouter(r fiber.Router, auth fiber.Handler) {
	tenantGroup := r.Group("/tenants", auth, rt.superAdminOnly)
	{
		tenantGroup.Post("/", rt.createTenant)
		tenantGroup.Get("/", rt.listTenants)
		tenantGroup.Get("/:tenantId", rt.getTenant)
		tenantGroup.Put("/:tenantId", rt.updateTenant)
		tenantGroup.Delete("/:tenantId", rt.deleteTenant)
	}
}

func (rt *Router) createTenant(c *fiber.Ctx) error {
	var req model.CreateTenantReq
	if err := c.BodyParser(&req); err != nil {
		return http.WithRepErrMsg(c, http.BadRequest.Code, err.Error(), middleware.RequestId(c))
	}
	tenant, err := rt.tenantLogic.CreateTenant(&req)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, tenant)
}

func (rt *Router) listTenants(c *fiber.Ctx) error {
	offset, pageSize := rt.pagination(c)
	tenants, total, err := rt.tenantLogic.ListTenants(offset, pageSize)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, pageResp{List: tenants, Total: total})
}

func (rt *Router) getTenant(c *fiber.Ctx) error {
	tenant, err := rt.tenantLogic.GetTenant(c.Params("tenantId"))
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, tenant)
}

func (rt *Router) updateTenant(c *fiber.Ctx) error {
	var req model.UpdateTenantReq
	if err := c.BodyParser(&req); err != nil {
		return http.WithRepErrMsg(c, http.BadRequest.Code, err.Error(), middleware.RequestId(c))
	}
	if err := rt.tenantLogic.UpdateTenant(c.Params("tenantId"), &req); err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepNotDetail(c)
}

func (rt *Router) deleteTenant(c *fiber.Ctx) error {
	if err := rt.tenantLogic.DeleteTenant(c.Params("tenantId")); err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepNotDetail(c)
}
