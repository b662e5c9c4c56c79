package handlers

import (
	"encoding/json"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/quickads/internal/apperr"
	"github.com/fathima-sithara/quickads/internal/middleware"
	"github.com/fathima-sithara/quickads/internal/models"
	"github.com/fathima-sithara/quickads/internal/posts"
	"github.com/fathima-sithara/quickads/internal/utils"
)

// CreatePost accepts the wizard as JSON or as multipart with image files
// under "images".
func (h *Handler) CreatePost(c *fiber.Ctx) error {
	return h.submit(c, "")
}

func (h *Handler) EditPost(c *fiber.Ctx) error {
	return h.submit(c, c.Params("id"))
}

func (h *Handler) submit(c *fiber.Ctx, postID string) error {
	f, closeFiles, err := parsePostForm(c)
	if err != nil {
		return h.fail(c, err, "")
	}
	defer closeFiles()

	res, err := h.Posts.Submit(c.UserContext(), middleware.Principal(c), f, postID)
	if err != nil {
		fallback := "Failed to create post"
		if postID != "" {
			fallback = "Failed to update post"
		}
		return h.fail(c, err, fallback)
	}
	status := fiber.StatusCreated
	if postID != "" {
		status = fiber.StatusOK
	}
	return utils.JSONSuccess(c, status, res)
}

func (h *Handler) DeletePost(c *fiber.Ctx) error {
	if err := h.Posts.Delete(c.UserContext(), middleware.Principal(c), c.Params("id")); err != nil {
		return h.fail(c, err, "Failed to delete post")
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"deleted": c.Params("id")})
}

func parsePostForm(c *fiber.Ctx) (posts.Form, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		var f posts.Form
		if err := c.BodyParser(&f); err != nil {
			return f, noop, apperr.ErrBadRequest
		}
		return f, noop, nil
	}
	mf, err := c.MultipartForm()
	if err != nil {
		return posts.Form{}, noop, apperr.ErrBadRequest
	}
	f, err := formFromValues(mf.Value)
	if err != nil {
		return f, noop, err
	}

	var opened []multipart.File
	closeAll := func() {
		for _, o := range opened {
			_ = o.Close()
		}
	}
	for _, fh := range mf.File["images"] {
		file, err := fh.Open()
		if err != nil {
			closeAll()
			return f, noop, apperr.ErrBadRequest
		}
		opened = append(opened, file)
		f.Files = append(f.Files, posts.File{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Body:        file,
		})
	}
	return f, closeAll, nil
}

// formFromValues reads multipart text fields. Lists may repeat or be comma
// separated; tourGuides and available are JSON.
func formFromValues(v map[string][]string) (posts.Form, error) {
	first := func(k string) string {
		if vs := v[k]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}
	list := func(k string) []string {
		var out []string
		for _, raw := range v[k] {
			for _, s := range strings.Split(raw, ",") {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	}
	f := posts.Form{
		UserID:            first("userId"),
		Title:             first("title"),
		Brand:             first("brand"),
		Model:             first("model"),
		TrimEdition:       first("trimEdition"),
		YearOfManufacture: first("yearOfManufacture"),
		Mileage:           first("mileage"),
		EngineCapacity:    first("engineCapacity"),
		FuelType:          list("fuelType"),
		Transmission:      list("transmission"),
		BodyType:          first("bodyType"),
		Category:          list("category"),
		Tags:              list("tags"),
		Services:          list("services"),
		Destination:       first("destination"),
		Description:       first("description"),
		Price:             first("price"),
		MobileNumber:      first("mobileNumber"),
		WhatsappNumber:    first("whatsappNumber"),
		Plan:              first("plane"),
	}
	if s := first("negotiable"); s != "" {
		f.Negotiable, _ = strconv.ParseBool(s)
	}
	for _, u := range append(v["images"], v["imageUrls"]...) {
		if u = strings.TrimSpace(u); u != "" {
			f.Images = append(f.Images, models.Image{ImageURL: u})
		}
	}
	if s := first("tourGuides"); s != "" {
		if err := json.Unmarshal([]byte(s), &f.TourGuides); err != nil {
			return f, apperr.ValidationErrors{{Field: "tourGuides", Tag: "json", Message: "tourGuides must be a JSON list"}}
		}
	}
	if s := first("available"); s != "" {
		if err := json.Unmarshal([]byte(s), &f.Available); err != nil {
			return f, apperr.ValidationErrors{{Field: "available", Tag: "json", Message: "available must be a JSON object"}}
		}
	}
	return f, nil
}
