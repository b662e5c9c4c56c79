package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/quickads/internal/middleware"
	"github.com/fathima-sithara/quickads/internal/utils"
)

// AdminPosts is the moderation queue; ?pending=true hides verified posts.
func (h *Handler) AdminPosts(c *fiber.Ctx) error {
	q, err := h.Moderation.Queue(c.UserContext(), middleware.Principal(c), c.QueryBool("pending"))
	if err != nil {
		return h.fail(c, err, "Failed to load posts")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, q)
}

func (h *Handler) AdminPost(c *fiber.Ctx) error {
	post, err := h.Moderation.Detail(c.UserContext(), middleware.Principal(c), c.Params("id"))
	if err != nil {
		return h.fail(c, err, "Failed to load post")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, post)
}

func (h *Handler) AcceptPost(c *fiber.Ctx) error {
	post, err := h.Moderation.Accept(c.UserContext(), middleware.Principal(c), c.Params("id"))
	if err != nil {
		return h.fail(c, err, "Failed to verify post")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"post": post, "label": post.Label()})
}
