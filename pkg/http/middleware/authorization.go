package middleware

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	goJwt "github.com/golang-jwt/jwt/v5"
	"github.com/riveredge/riveredge/pkg/cache"
	"github.com/riveredge/riveredge/pkg/ctx"
	"github.com/riveredge/riveredge/pkg/http"
	"github.com/riveredge/riveredge/pkg/http/jwt"
	"github.com/riveredge/riveredge/pkg/log"
)

// AuthorizationMiddleware authenticates the bearer token, verifies the token
// is still live in redis, and binds the AuthContext for downstream handlers.
//
// A platform superadmin may target a specific tenant by supplying a tenantId
// query parameter; any other principal supplying one is rejected.
func AuthorizationMiddleware(auth http.Auth, client cache.ICache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return http.WithRepErrMsg(c, http.TokenBeEmpty.Code, http.TokenBeEmpty.Message, RequestId(c))
		}

		parts := strings.SplitN(header, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return http.WithRepErrMsg(c, http.TokenBeEmpty.Code, http.TokenBeEmpty.Message, RequestId(c))
		}

		claims, err := jwt.ParseAccessToken(parts[1], auth.SecretKey)
		if err != nil {
			if errors.Is(err, goJwt.ErrTokenExpired) {
				return http.WithRepErrMsg(c, http.TokenExpired.Code, http.TokenExpired.Message, RequestId(c))
			}
			log.Debugf("parse token failed: %v", err)
			return http.WithRepErrMsg(c, http.InvalidToken.Code, http.InvalidToken.Message, RequestId(c))
		}

		// token presence in redis makes logout immediate
		if client != nil {
			tokenKey := auth.RedisKeyPrefix + claims.UserId
			exists, err := client.Exists(c.Context(), tokenKey).Result()
			if err != nil {
				log.Errorf("redis check token exists failed: %v", err)
				return http.WithRepErrMsg(c, http.InternalError.Code, http.InternalError.Message, RequestId(c))
			}
			if exists == 0 {
				return http.WithRepErrMsg(c, http.TokenExpired.Code, http.TokenExpired.Message, RequestId(c))
			}
		}

		ac := &ctx.AuthContext{
			PrincipalClass: ctx.PrincipalClass(claims.PrincipalClass),
			UserId:         claims.UserId,
			TenantId:       claims.TenantId,
			IsTenantAdmin:  claims.IsTenantAdmin,
			RequestId:      RequestId(c),
			ClientIp:       c.IP(),
		}

		if target := c.Query("tenantId"); target != "" {
			if !ac.IsSuperAdmin() {
				return http.WithRepErrMsg(c, http.Forbidden.Code, "only the platform superadmin may target a tenant", RequestId(c))
			}
			tenantId, err := strconv.ParseUint(target, 10, 64)
			if err != nil {
				return http.WithRepErrMsg(c, http.BadRequest.Code, "invalid tenantId", RequestId(c))
			}
			ac.TenantId = tenantId
		}

		ctx.Bind(c, ac)
		c.Locals("claims", claims)
		return c.Next()
	}
}
