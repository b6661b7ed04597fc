package http

import (
	"github.com/gofiber/fiber/v2"
)

// Response is the uniform success envelope.
type Response struct {
	Code    int    `json:"code"`
	Detail  any    `json:"detail,omitempty"`
	Message string `json:"message"`
}

// WithRepJSON returns detail under the success envelope.
func WithRepJSON(c *fiber.Ctx, detail any) error {
	return c.JSON(Response{
		Code:    Success.Code,
		Detail:  detail,
		Message: Success.Message,
	})
}

// WithRepMsg returns a custom code and message.
func WithRepMsg(c *fiber.Ctx, code int, msg string) error {
	return c.Status(code).JSON(Response{
		Code:    code,
		Message: msg,
	})
}

// WithRepNotDetail returns the bare success envelope.
func WithRepNotDetail(c *fiber.Ctx) error {
	return c.JSON(Response{
		Code:    Success.Code,
		Message: Success.Message,
	})
}
