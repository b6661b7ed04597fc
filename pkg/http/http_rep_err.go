package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/riveredge/riveredge/pkg/errs"
)

// ErrDetails carries machine-readable failure context.
type ErrDetails struct {
	Reason    string   `json:"reason,omitempty"`
	Required  []string `json:"required,omitempty"`
	RequestId string   `json:"requestId,omitempty"`
}

// ResponseErr is the uniform error envelope.
type ResponseErr struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Details ErrDetails `json:"details"`
}

// WithRepErrMsg returns an error envelope with a custom code and message.
func WithRepErrMsg(c *fiber.Ctx, code int, msg string, requestId string) error {
	return c.Status(code).JSON(ResponseErr{
		Code:    code,
		Message: msg,
		Details: ErrDetails{RequestId: requestId},
	})
}

// WithRepErr maps a typed platform error to the envelope. Internal errors are
// sanitized; everything else surfaces its message, reason and the missing
// permissions.
func WithRepErr(c *fiber.Ctx, err error, requestId string) error {
	pe := errs.AsError(err)
	status := StatusOf(pe.Kind)

	msg := pe.Msg
	if pe.Kind == errs.Internal {
		msg = InternalError.Message
	}

	reason := pe.Reason
	if reason == "" {
		reason = pe.Kind.String()
	}

	return c.Status(status).JSON(ResponseErr{
		Code:    status,
		Message: msg,
		Details: ErrDetails{
			Reason:    reason,
			Required:  pe.Required,
			RequestId: requestId,
		},
	})
}
