package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/quickads/internal/apperr"
	"github.com/fathima-sithara/quickads/internal/listing"
	"github.com/fathima-sithara/quickads/internal/middleware"
	"github.com/fathima-sithara/quickads/internal/models"
	"github.com/fathima-sithara/quickads/internal/resource"
	"github.com/fathima-sithara/quickads/internal/utils"
)

type AdsPage struct {
	Items       []models.AdPost `json:"items"`
	Total       int             `json:"total"`
	View        resource.View   `json:"view"`
	Validating  bool            `json:"validating"`
	Sort        string          `json:"sort"`
	SortOptions []string        `json:"sortOptions"`
	DateError   bool            `json:"dateError"`
	CanReset    bool            `json:"canReset"`
	NotFound    bool            `json:"notFound"`
}

// Ads lists verified posts through the search, sort and filter pipeline.
func (h *Handler) Ads(c *fiber.Ctx) error {
	f, err := parseFilters(c)
	if err != nil {
		return h.fail(c, err, "")
	}
	sortKey := c.Query("sort", listing.SortLatest)
	snap := h.Posts.VerifiedPosts(c.UserContext())
	if snap.Err != nil {
		return h.fail(c, snap.Err, "Failed to load posts")
	}
	items := listing.Apply(snap.Data, f, sortKey, c.Query("q"))

	view := snap.View()
	if view == resource.ViewReady && len(items) == 0 {
		view = resource.ViewEmpty
	}
	return utils.JSONSuccess(c, fiber.StatusOK, AdsPage{
		Items:       items,
		Total:       len(snap.Data),
		View:        view,
		Validating:  snap.Validating,
		Sort:        sortKey,
		SortOptions: listing.SortOptions,
		DateError:   f.DateError(),
		CanReset:    f.CanReset(),
		NotFound:    listing.NotFound(items, f),
	})
}

// MyAds lists the caller's own posts.
func (h *Handler) MyAds(c *fiber.Ctx) error {
	p := middleware.Principal(c)
	if err := p.RequireUser(); err != nil {
		return h.fail(c, err, "")
	}
	snap := h.Posts.UserPosts(c.UserContext(), p.UserID)
	if snap.Err != nil {
		return h.fail(c, snap.Err, "Failed to load your posts")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{
		"items":      snap.Data,
		"view":       snap.View(),
		"validating": snap.Validating,
	})
}

func parseFilters(c *fiber.Ctx) (listing.Filters, error) {
	f := listing.Filters{
		Destination: multi(c, "destination"),
		Tags:        multi(c, "tag"),
		Services:    multi(c, "service"),
		TourGuides:  multi(c, "guide"),
	}
	var err error
	if s := c.Query("start"); s != "" {
		if f.StartDate, err = models.ParseDate(s); err != nil {
			return f, apperr.ValidationErrors{{Field: "start", Tag: "date", Value: s, Message: "start must be a date"}}
		}
	}
	if s := c.Query("end"); s != "" {
		if f.EndDate, err = models.ParseDate(s); err != nil {
			return f, apperr.ValidationErrors{{Field: "end", Tag: "date", Value: s, Message: "end must be a date"}}
		}
	}
	return f, nil
}

// multi reads a repeated or comma separated query parameter.
func multi(c *fiber.Ctx, key string) []string {
	var out []string
	for _, raw := range c.Context().QueryArgs().PeekMulti(key) {
		for _, v := range strings.Split(string(raw), ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
