package utils

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/quickads/internal/apperr"
)

func JSONSuccess(c *fiber.Ctx, status int, payload interface{}) error {
	return c.Status(status).JSON(fiber.Map{"status": "ok", "data": payload})
}

func JSONError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"status": "error", "message": msg})
}

// JSONFail writes err with the status from StatusOf. Validation errors carry
// the per-field list.
func JSONFail(c *fiber.Ctx, err error, fallback string) error {
	status := StatusOf(err)
	var ve apperr.ValidationErrors
	if errors.As(err, &ve) {
		return c.Status(status).JSON(fiber.Map{"status": "error", "message": ve[0].Message, "errors": ve})
	}
	return JSONError(c, status, MessageOf(err, status, fallback))
}

// StatusOf maps an error onto an HTTP status.
func StatusOf(err error) int {
	var ve apperr.ValidationErrors
	var ue *apperr.UpstreamError
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.As(err, &ve):
		return fiber.StatusUnprocessableEntity
	case errors.As(err, &ue):
		if ue.Status >= 400 && ue.Status < 500 {
			return ue.Status
		}
		return fiber.StatusBadGateway
	case errors.Is(err, apperr.ErrBadRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperr.ErrRateLimited):
		return fiber.StatusTooManyRequests
	case errors.Is(err, apperr.ErrServiceUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, apperr.ErrTransport), errors.Is(err, apperr.ErrProtocolMismatch):
		return fiber.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// MessageOf prefers the server's own text. Internal failures get fallback so
// nothing internal leaks to the client.
func MessageOf(err error, status int, fallback string) string {
	if msg := apperr.Message(err, ""); msg != "" {
		return msg
	}
	if status >= 500 {
		return fallback
	}
	return err.Error()
}
