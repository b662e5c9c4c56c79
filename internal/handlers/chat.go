package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/quickads/internal/apperr"
	"github.com/fathima-sithara/quickads/internal/chat"
	"github.com/fathima-sithara/quickads/internal/utils"
)

type askRequest struct {
	Question string `json:"question"`
}

// Ask relays one question. A failed ask still returns the bot's fallback
// message alongside the error status.
func (h *Handler) Ask(c *fiber.Ctx) error {
	var req askRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, apperr.ErrBadRequest, "")
	}
	msg, err := h.Chat.Reply(c.UserContext(), req.Question)
	if err != nil {
		var ve apperr.ValidationErrors
		if errors.As(err, &ve) {
			return h.fail(c, err, "")
		}
		status := utils.StatusOf(err)
		if errors.Is(err, chat.ErrNotConfigured) {
			status = fiber.StatusServiceUnavailable
		} else if status < fiber.StatusInternalServerError {
			status = fiber.StatusBadGateway
		}
		return c.Status(status).JSON(fiber.Map{"status": "error", "message": "Failed to get response from chat bot", "data": msg})
	}
	return utils.JSONSuccess(c, fiber.StatusOK, msg)
}
