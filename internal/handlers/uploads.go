package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/quickads/internal/apperr"
	"github.com/fathima-sithara/quickads/internal/middleware"
	"github.com/fathima-sithara/quickads/internal/storage"
	"github.com/fathima-sithara/quickads/internal/utils"
)

// Upload stores one image from the "file" part and returns its URL.
func (h *Handler) Upload(c *fiber.Ctx) error {
	p := middleware.Principal(c)
	if err := p.RequireUser(); err != nil {
		return h.fail(c, err, "")
	}
	if h.Uploader == nil {
		return utils.JSONError(c, fiber.StatusServiceUnavailable, "image upload is not configured")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return h.fail(c, apperr.ValidationErrors{{Field: "file", Tag: "required", Message: "file is required"}}, "")
	}
	ct := fh.Header.Get(fiber.HeaderContentType)
	if err := storage.Validate(ct, fh.Size, h.MaxUpload); err != nil {
		return h.fail(c, err, "")
	}
	file, err := fh.Open()
	if err != nil {
		return h.fail(c, apperr.ErrBadRequest, "")
	}
	defer file.Close()

	res, err := h.Uploader.Upload(c.UserContext(), storage.Upload{
		OwnerID:     p.UserID,
		Filename:    fh.Filename,
		ContentType: ct,
		Size:        fh.Size,
		Body:        file,
		OnProgress: func(sent, total int64) {
			if sent == total {
				h.Log.Debug("upload complete", zap.String("file", fh.Filename), zap.Int64("bytes", total))
			}
		},
	})
	if err != nil {
		return h.fail(c, err, "File upload failed")
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, res)
}
