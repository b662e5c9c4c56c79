package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/quickads/internal/apperr"
	"github.com/fathima-sithara/quickads/internal/middleware"
	"github.com/fathima-sithara/quickads/internal/models"
	"github.com/fathima-sithara/quickads/internal/otp"
	"github.com/fathima-sithara/quickads/internal/utils"
)

func (h *Handler) OTPStatus(c *fiber.Ctx) error {
	st, err := h.OTP.Status(c.UserContext(), middleware.Principal(c))
	if err != nil {
		return h.fail(c, err, "Failed to load verification status")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"status": st})
}

func (h *Handler) SendOTP(c *fiber.Ctx) error {
	var req models.SendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, apperr.ErrBadRequest, "")
	}
	if err := h.OTP.SendCode(c.UserContext(), middleware.Principal(c), req.PhoneNumber); err != nil {
		return h.fail(c, err, "Failed to send OTP")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"status": otp.StatusPending})
}

func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req models.VerifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, apperr.ErrBadRequest, "")
	}
	st, err := h.OTP.VerifyCode(c.UserContext(), middleware.Principal(c), req.PhoneNumber, req.OTP)
	if err != nil {
		if errors.Is(err, otp.ErrCodeRejected) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid OTP", "data": fiber.Map{"status": st}})
		}
		return h.fail(c, err, "Failed to verify OTP")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"status": st})
}

// Gate answers 401 with the login path, 403 with the verify path, or 200.
func (h *Handler) Gate(c *fiber.Ctx) error {
	d, err := h.OTP.Gate(c.UserContext(), middleware.Principal(c), h.LoginPath, h.VerifyPath)
	switch {
	case errors.Is(err, otp.ErrLoginRequired):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": "error", "message": err.Error(), "data": d})
	case errors.Is(err, otp.ErrVerificationRequired):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"status": "error", "message": err.Error(), "data": d})
	case err != nil:
		return h.fail(c, err, "Failed to check verification")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, d)
}

// RequireVerified blocks post creation until the phone is verified.
func (h *Handler) RequireVerified(c *fiber.Ctx) error {
	if _, err := h.OTP.Gate(c.UserContext(), middleware.Principal(c), h.LoginPath, h.VerifyPath); err != nil {
		return h.fail(c, err, "Failed to check verification")
	}
	return c.Next()
}
