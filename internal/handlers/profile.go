package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/quickads/internal/apperr"
	"github.com/fathima-sithara/quickads/internal/auth"
	"github.com/fathima-sithara/quickads/internal/middleware"
	"github.com/fathima-sithara/quickads/internal/models"
	"github.com/fathima-sithara/quickads/internal/profile"
	"github.com/fathima-sithara/quickads/internal/utils"
)

func (h *Handler) GetProfile(c *fiber.Ctx) error {
	snap, err := h.Profile.Get(c.UserContext(), middleware.Principal(c))
	if err != nil {
		return h.fail(c, err, "Failed to load profile")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"profile": snap.Data, "view": snap.View()})
}

func (h *Handler) CreateProfile(c *fiber.Ctx) error {
	return h.saveProfile(c, h.Profile.Create, fiber.StatusCreated)
}

func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	return h.saveProfile(c, h.Profile.Update, fiber.StatusOK)
}

func (h *Handler) saveProfile(c *fiber.Ctx, save func(context.Context, auth.Principal, models.UserProfile) error, status int) error {
	var in models.UserProfile
	if err := c.BodyParser(&in); err != nil {
		return h.fail(c, apperr.ErrBadRequest, "")
	}
	if err := save(c.UserContext(), middleware.Principal(c), in); err != nil {
		return h.fail(c, err, "Failed to save profile")
	}
	return utils.JSONSuccess(c, status, fiber.Map{"saved": true})
}

func (h *Handler) GetProfilePhoto(c *fiber.Ctx) error {
	snap, err := h.Profile.Photo(c.UserContext(), middleware.Principal(c))
	if err != nil {
		return h.fail(c, err, "Failed to load profile photo")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"image": snap.Data, "view": snap.View()})
}

func (h *Handler) CreateProfilePhoto(c *fiber.Ctx) error {
	return h.setPhoto(c, false)
}

func (h *Handler) UpdateProfilePhoto(c *fiber.Ctx) error {
	return h.setPhoto(c, true)
}

// setPhoto takes either a "file" part or {"image": url}.
func (h *Handler) setPhoto(c *fiber.Ctx, replace bool) error {
	var (
		imageURL string
		upload   *profile.PhotoUpload
	)
	if fh, err := c.FormFile("file"); err == nil {
		file, err := fh.Open()
		if err != nil {
			return h.fail(c, apperr.ErrBadRequest, "")
		}
		defer file.Close()
		upload = &profile.PhotoUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Body:        file,
		}
	} else {
		var body struct {
			Image string `json:"image"`
		}
		if err := c.BodyParser(&body); err != nil {
			return h.fail(c, apperr.ErrBadRequest, "")
		}
		imageURL = body.Image
	}
	url, err := h.Profile.SetPhoto(c.UserContext(), middleware.Principal(c), imageURL, upload, replace)
	if err != nil {
		return h.fail(c, err, "Failed to save profile photo")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"image": url})
}
