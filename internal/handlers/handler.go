// Package handlers exposes the services over HTTP and WebSocket.
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/quickads/internal/chat"
	"github.com/fathima-sithara/quickads/internal/moderation"
	"github.com/fathima-sithara/quickads/internal/otp"
	"github.com/fathima-sithara/quickads/internal/posts"
	"github.com/fathima-sithara/quickads/internal/profile"
	"github.com/fathima-sithara/quickads/internal/storage"
	"github.com/fathima-sithara/quickads/internal/utils"
)

type Deps struct {
	Posts      *posts.Service
	OTP        *otp.Service
	Moderation *moderation.Service
	Profile    *profile.Service
	Chat       *chat.Service
	Uploader   storage.Uploader
	MaxUpload  int64
	LoginPath  string
	VerifyPath string
	// HealthCheck reports dependency state for /healthz.
	HealthCheck func() fiber.Map
	Log         *zap.Logger
}

type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Handler{Deps: d}
}

// fail maps domain errors that carry no apperr sentinel, then defers to
// utils.JSONFail.
func (h *Handler) fail(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, otp.ErrLoginRequired):
		return utils.JSONError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, otp.ErrVerificationRequired):
		return utils.JSONError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, otp.ErrInvalidPhone), errors.Is(err, otp.ErrInvalidCode), errors.Is(err, otp.ErrCodeRejected):
		return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrInvalidFile):
		return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrFileTooLarge):
		return utils.JSONError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, chat.ErrNotConfigured):
		return utils.JSONError(c, fiber.StatusServiceUnavailable, err.Error())
	}
	status := utils.StatusOf(err)
	if status >= fiber.StatusInternalServerError {
		h.Log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return utils.JSONFail(c, err, fallback)
}

func (h *Handler) Health(c *fiber.Ctx) error {
	body := fiber.Map{"status": "ok"}
	if h.HealthCheck != nil {
		for k, v := range h.HealthCheck() {
			body[k] = v
		}
	}
	return c.JSON(body)
}
