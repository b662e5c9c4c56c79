package models

import "encoding/json"

type Image struct {
	ImageURL string `json:"imageUrl"`
	Alt      string `json:"alt,omitempty"`
}

type TourGuide struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type Availability struct {
	StartDate Date `json:"startDate"`
	EndDate   Date `json:"endDate"`
}

// AdPost is a classified listing as served by the marketplace API.
type AdPost struct {
	ID                string       `json:"_id,omitempty"`
	PostID            string       `json:"postId,omitempty"`
	UserID            string       `json:"userId"`
	Title             string       `json:"title,omitempty"`
	Brand             string       `json:"brand,omitempty"`
	Model             string       `json:"model,omitempty"`
	TrimEdition       string       `json:"trimEdition,omitempty"`
	YearOfManufacture string       `json:"yearOfManufacture,omitempty"`
	Mileage           string       `json:"mileage,omitempty"`
	EngineCapacity    string       `json:"engineCapacity,omitempty"`
	FuelType          []string     `json:"fuelType,omitempty"`
	Transmission      []string     `json:"transmission,omitempty"`
	BodyType          string       `json:"bodyType,omitempty"`
	Category          []string     `json:"category,omitempty"`
	Tags              []string     `json:"tags,omitempty"`
	Services          []string     `json:"services,omitempty"`
	Destination       string       `json:"destination,omitempty"`
	TourGuides        []TourGuide  `json:"tourGuides,omitempty"`
	Available         Availability `json:"available"`
	Images            []Image      `json:"images,omitempty"`
	Description       string       `json:"description,omitempty"`
	Price             string       `json:"price,omitempty"`
	MobileNumber      string       `json:"mobileNumber,omitempty"`
	WhatsappNumber    string       `json:"whatsappNumber,omitempty"`
	Plan              string       `json:"plane,omitempty"`
	Negotiable        bool         `json:"negotiable"`
	Verify            bool         `json:"verify"`
	TotalViews        int          `json:"totalViews"`
	CreatedAt         Date         `json:"createdAt"`
	UpdatedAt         Date         `json:"updatedAt"`
}

// Key returns the identifier used by the edit endpoint.
func (p AdPost) Key() string {
	if p.PostID != "" {
		return p.PostID
	}
	return p.ID
}

// Label is the moderation badge shown next to a post.
func (p AdPost) Label() string {
	if p.Verify {
		return "Verified"
	}
	return "Pending"
}

// UnmarshalJSON accepts price as either a JSON string or number; the API has
// sent both.
func (p *AdPost) UnmarshalJSON(b []byte) error {
	type alias AdPost
	aux := struct {
		*alias
		Price json.RawMessage `json:"price,omitempty"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if len(aux.Price) == 0 || string(aux.Price) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(aux.Price, &s); err == nil {
		p.Price = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(aux.Price, &n); err != nil {
		return err
	}
	p.Price = n.String()
	return nil
}
