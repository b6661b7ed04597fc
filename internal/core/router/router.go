package router

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riveredge/riveredge/internal/core/logic"
	"github.com/riveredge/riveredge/pkg/cache"
	"github.com/riveredge/riveredge/pkg/ctx"
	"github.com/riveredge/riveredge/pkg/errs"
	httpx "github.com/riveredge/riveredge/pkg/http"
	"github.com/riveredge/riveredge/pkg/http/middleware"
	"github.com/riveredge/riveredge/pkg/version"
)

type Router struct {
	Http  *httpx.Http
	Cache cache.ICache

	authLogic     *logic.AuthLogic
	tenantLogic   *logic.TenantLogic
	userLogic     *logic.UserLogic
	roleLogic     *logic.RoleLogic
	permLogic     *logic.PermissionLogic
	policyLogic   *logic.PolicyLogic
	decisionLogic *logic.DecisionLogic
	appLogic      *logic.ApplicationLogic
	menuLogic     *logic.MenuLogic
	approvalLogic *logic.ApprovalLogic
}

func NewRouter(httpConf *httpx.Http, client cache.ICache,
	authLogic *logic.AuthLogic, tenantLogic *logic.TenantLogic, userLogic *logic.UserLogic,
	roleLogic *logic.RoleLogic, permLogic *logic.PermissionLogic, policyLogic *logic.PolicyLogic,
	decisionLogic *logic.DecisionLogic, appLogic *logic.ApplicationLogic,
	menuLogic *logic.MenuLogic, approvalLogic *logic.ApprovalLogic) *Router {
	return &Router{
		Http:          httpConf,
		Cache:         client,
		authLogic:     authLogic,
		tenantLogic:   tenantLogic,
		userLogic:     userLogic,
		roleLogic:     roleLogic,
		permLogic:     permLogic,
		policyLogic:   policyLogic,
		decisionLogic: decisionLogic,
		appLogic:      appLogic,
		menuLogic:     menuLogic,
		approvalLogic: approvalLogic,
	}
}

func (rt *Router) Router() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return httpx.WithRepErr(c, err, middleware.RequestId(c))
		},
	})

	app.Use(middleware.RequestMiddleware())
	app.Use(middleware.ExceptionMiddleware)
	if rt.Http.AccessLog {
		app.Use(middleware.AccessLogMiddleware(rt.Http))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/version", func(c *fiber.Ctx) error {
		return c.JSON(version.GetVersion())
	})
	if rt.Http.ExposeMetrics {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := app.Group(rt.Http.ContextPath)
	auth := middleware.AuthorizationMiddleware(rt.Http.Auth, rt.Cache)

	rt.authRouter(api, auth)
	rt.tenantRouter(api, auth)
	rt.userRouter(api, auth)
	rt.roleRouter(api, auth)
	rt.permissionRouter(api, auth)
	rt.policyRouter(api, auth)
	rt.groupRouter(api, auth)
	rt.applicationRouter(api, auth)
	rt.menuRouter(api, auth)
	rt.approvalRouter(api, auth)

	return app
}

// guard declares the (resource, action) an endpoint needs and runs the
// decision engine against it. Denials carry the missing permission.
func (rt *Router) guard(resource, action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ac, err := ctx.FromFiber(c)
		if err != nil {
			return httpx.WithRepErr(c, err, middleware.RequestId(c))
		}
		decision, err := rt.decisionLogic.Decide(ac, resource, action, nil)
		if err != nil {
			return httpx.WithRepErr(c, err, middleware.RequestId(c))
		}
		if !decision.Allowed {
			denied := errs.Forbiddenf("%s", httpx.PermissionDenied.Message).
				WithReason(decision.Reason).
				WithRequired(decision.Required...)
			return httpx.WithRepErr(c, denied, middleware.RequestId(c))
		}
		return c.Next()
	}
}

// superAdminOnly restricts an endpoint to the platform superadmin.
func (rt *Router) superAdminOnly(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return httpx.WithRepErr(c, err, middleware.RequestId(c))
	}
	if !ac.IsSuperAdmin() {
		return httpx.WithRepErrMsg(c, httpx.Forbidden.Code, httpx.Forbidden.Message, middleware.RequestId(c))
	}
	return c.Next()
}

// tenantAdminOnly restricts an endpoint to tenant admins (and the
// superadmin acting on a tenant).
func (rt *Router) tenantAdminOnly(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return httpx.WithRepErr(c, err, middleware.RequestId(c))
	}
	if !ac.IsSuperAdmin() && !ac.IsTenantAdmin {
		return httpx.WithRepErrMsg(c, httpx.Forbidden.Code, httpx.Forbidden.Message, middleware.RequestId(c))
	}
	return c.Next()
}

// pagination clamps page parameters to the configured ceiling.
func (rt *Router) pagination(c *fiber.Ctx) (offset, pageSize int) {
	pageNum := c.QueryInt("pageNum", 1)
	if pageNum < 1 {
		pageNum = 1
	}
	pageSize = c.QueryInt("pageSize", 20)
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > rt.Http.MaxPageSize {
		pageSize = rt.Http.MaxPageSize
	}
	return (pageNum - 1) * pageSize, pageSize
}

// pageResp is the uniform list payload.
type pageResp struct {
	List  any   `json:"list"`
	Total int64 `json:"total"`
}
