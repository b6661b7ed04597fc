package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/riveredge/riveredge/pkg/errs"
)

var (
	Success = &Response{Code: 200, Message: "Request Success"}

	BadRequest       = failed(fiber.StatusBadRequest, "Bad request")
	Unauthorized     = failed(fiber.StatusUnauthorized, "Unauthorized")
	Forbidden        = failed(fiber.StatusForbidden, "Forbidden")
	NotFound         = failed(fiber.StatusNotFound, "Not found")
	Conflict         = failed(fiber.StatusConflict, "Conflict")
	BusinessRule     = failed(fiber.StatusUnprocessableEntity, "Business rule violated")
	Unavailable      = failed(fiber.StatusServiceUnavailable, "Temporarily unavailable, retry later")
	InternalError    = failed(fiber.StatusInternalServerError, "Internal error, please contact the administrator")
	TokenBeEmpty     = failed(fiber.StatusUnauthorized, "Token cannot be empty")
	TokenExpired     = failed(fiber.StatusUnauthorized, "Token is expired")
	InvalidToken     = failed(fiber.StatusUnauthorized, "Invalid token")
	PermissionDenied = failed(fiber.StatusForbidden, "Permission denied")
)

func failed(code int, msg string) *Response {
	return &Response{Code: code, Message: msg}
}

// StatusOf maps an error kind to the HTTP status code.
func StatusOf(kind errs.Kind) int {
	switch kind {
	case errs.Validation:
		return fiber.StatusBadRequest
	case errs.Unauthorized:
		return fiber.StatusUnauthorized
	case errs.Forbidden:
		return fiber.StatusForbidden
	case errs.NotFound:
		return fiber.StatusNotFound
	case errs.Conflict:
		return fiber.StatusConflict
	case errs.BusinessRule:
		return fiber.StatusUnprocessableEntity
	case errs.Transient:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
