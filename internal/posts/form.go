package posts

import (
	"encoding/json"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fathima-sithara/quickads/internal/apperr"
	"github.com/fathima-sithara/quickads/internal/models"
)

// Form is the post creation wizard payload.
type Form struct {
	UserID            string              `json:"userId" validate:"required"`
	Title             string              `json:"title" validate:"required"`
	Brand             string              `json:"brand,omitempty"`
	Model             string              `json:"model,omitempty"`
	TrimEdition       string              `json:"trimEdition,omitempty"`
	YearOfManufacture string              `json:"yearOfManufacture" validate:"required"`
	Mileage           string              `json:"mileage" validate:"required,number"`
	EngineCapacity    string              `json:"engineCapacity" validate:"required"`
	FuelType          []string            `json:"fuelType" validate:"min=1"`
	Transmission      []string            `json:"transmission" validate:"min=1"`
	BodyType          string              `json:"bodyType" validate:"required"`
	Category          []string            `json:"category,omitempty"`
	Tags              []string            `json:"tags,omitempty" validate:"min=2"`
	Services          []string            `json:"services,omitempty" validate:"min=2"`
	Destination       string              `json:"destination" validate:"required"`
	TourGuides        []models.TourGuide  `json:"tourGuides,omitempty"`
	Available         models.Availability `json:"available"`
	Description       string              `json:"description" validate:"required"`
	Price             string              `json:"price" validate:"required"`
	MobileNumber      string              `json:"mobileNumber,omitempty"`
	WhatsappNumber    string              `json:"whatsappNumber,omitempty"`
	Plan              string              `json:"plane,omitempty"`
	Negotiable        bool                `json:"negotiable"`
	Images            []models.Image      `json:"images"`

	// Files are sent as multipart parts on create.
	Files []File `json:"-"`
}

// File is an image attached to a create request.
type File struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		f := sl.Current().Interface().(Form)
		if len(f.Images)+len(f.Files) == 0 {
			sl.ReportError(f.Images, "images", "Images", "min", "1")
		}
		start, end := f.Available.StartDate, f.Available.EndDate
		if start.IsZero() {
			sl.ReportError(start, "available.startDate", "StartDate", "required", "")
		}
		if end.IsZero() {
			sl.ReportError(end, "available.endDate", "EndDate", "required", "")
		}
		if !start.IsZero() && !end.IsZero() && end.Before(start.Time) {
			sl.ReportError(end, "available.endDate", "EndDate", "gtefield", "startDate")
		}
	}, Form{})
	return v
}

// Validate returns apperr.ValidationErrors listing every failed field.
func (f Form) Validate(v *validator.Validate) error {
	return apperr.FromValidator(v.Struct(f))
}

// multipartFields flattens f for the create endpoint. List values repeat the
// field name; nested values are sent as JSON text.
func (f Form) multipartFields() (map[string][]string, error) {
	fields := map[string][]string{}
	set := func(k, v string) {
		if v != "" {
			fields[k] = []string{v}
		}
	}
	set("userId", f.UserID)
	set("title", f.Title)
	set("brand", f.Brand)
	set("model", f.Model)
	set("trimEdition", f.TrimEdition)
	set("yearOfManufacture", f.YearOfManufacture)
	set("mileage", f.Mileage)
	set("engineCapacity", f.EngineCapacity)
	set("bodyType", f.BodyType)
	set("destination", f.Destination)
	set("description", f.Description)
	set("price", f.Price)
	set("mobileNumber", f.MobileNumber)
	set("whatsappNumber", f.WhatsappNumber)
	set("plane", f.Plan)
	fields["negotiable"] = []string{strconv.FormatBool(f.Negotiable)}

	for k, vs := range map[string][]string{
		"fuelType":     f.FuelType,
		"transmission": f.Transmission,
		"category":     f.Category,
		"tags":         f.Tags,
		"services":     f.Services,
	} {
		if len(vs) > 0 {
			fields[k] = append([]string(nil), vs...)
		}
	}
	for _, img := range f.Images {
		fields["images"] = append(fields["images"], img.ImageURL)
	}
	if len(f.TourGuides) > 0 {
		b, err := json.Marshal(f.TourGuides)
		if err != nil {
			return nil, err
		}
		fields["tourGuides"] = []string{string(b)}
	}
	if !f.Available.StartDate.IsZero() || !f.Available.EndDate.IsZero() {
		b, err := json.Marshal(f.Available)
		if err != nil {
			return nil, err
		}
		fields["available"] = []string{string(b)}
	}
	return fields, nil
}
