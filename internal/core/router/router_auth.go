package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/pkg/ctx"
	"github.com/riveredge/riveredge/pkg/http"
	"github.com/riveredge/riveredge/pkg/http/middleware"
)

func (rt *Router) authRouter(r fiber.Router, auth fiber.Handler) {
	authGroup := r.Group("/auth")
	{
		authGroup.Post("/login", rt.login)
		authGroup.Post("/superadmin/login", rt.superAdminLogin)
		authGroup.Post("/refresh", rt.refresh)

		authGroup.Post("/logout", auth, rt.logout)
	}
}

func (rt *Router) login(c *fiber.Ctx) error {
	var login model.LoginReq
	if err := c.BodyParser(&login); err != nil {
		return http.WithRepErrMsg(c, http.BadRequest.Code, err.Error(), middleware.RequestId(c))
	}

	resp, err := rt.authLogic.Login(c.UserContext(), &login, rt.Http.Auth)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}

	return http.WithRepJSON(c, resp)
}

func (rt *Router) superAdminLogin(c *fiber.Ctx) error {
	var login model.SuperAdminLoginReq
	if err := c.BodyParser(&login); err != nil {
		return http.WithRepErrMsg(c, http.BadRequest.Code, err.Error(), middleware.RequestId(c))
	}

	token, err := rt.authLogic.SuperAdminLogin(c.UserContext(), &login, rt.Http.Auth)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, fiber.Map{"token": token})
}

func (rt *Router) refresh(c *fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.BodyParser(&body); err != nil {
		return http.WithRepErrMsg(c, http.BadRequest.Code, err.Error(), middleware.RequestId(c))
	}
	if body.RefreshToken == "" {
		return http.WithRepErrMsg(c, http.TokenBeEmpty.Code, http.TokenBeEmpty.Message, middleware.RequestId(c))
	}

	token, err := rt.authLogic.Refresh(c.UserContext(), body.RefreshToken, rt.Http.Auth)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepJSON(c, fiber.Map{"token": token})
}

func (rt *Router) logout(c *fiber.Ctx) error {
	ac, err := ctx.FromFiber(c)
	if err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	if err := rt.authLogic.Logout(c.UserContext(), ac.UserId, rt.Http.Auth); err != nil {
		return http.WithRepErr(c, err, middleware.RequestId(c))
	}
	return http.WithRepNotDetail(c)
}
