package middleware

import (
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	"github.com/riveredge/riveredge/pkg/http"
	"github.com/riveredge/riveredge/pkg/log"
)

// ExceptionMiddleware recovers from panics and returns the sanitized
// internal-error envelope. The full trace is logged with the request id.
func ExceptionMiddleware(c *fiber.Ctx) error {
	defer func() {
		if err := recover(); err != nil {
			log.Errorw("panic recovered",
				"requestId", RequestId(c),
				"path", c.Path(),
				"error", err,
				"stack", string(debug.Stack()),
			)
			_ = http.WithRepErrMsg(c, http.InternalError.Code, http.InternalError.Message, RequestId(c))
		}
	}()

	return c.Next()
}
