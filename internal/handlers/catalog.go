package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/quickads/internal/listing"
	"github.com/fathima-sithara/quickads/internal/utils"
)

type Category struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

type Plan struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
}

type Catalog struct {
	Categories   []Category `json:"categories"`
	VehicleTypes []string   `json:"vehicleTypes"`
	Cities       []string   `json:"cities"`
	Plans        []Plan     `json:"plans"`
	SortOptions  []string   `json:"sortOptions"`
	FuelTypes    []string   `json:"fuelTypes"`
	Transmission []string   `json:"transmission"`
}

var catalog = Catalog{
	Categories: []Category{
		{Key: "vehicles", Title: "Vehicles"},
		{Key: "properties", Title: "Properties"},
	},
	VehicleTypes: []string{"Car", "Van", "SUV", "Motorcycle", "Three Wheeler", "Lorry", "Bus"},
	Cities:       []string{"Colombo", "Kandy", "Galle"},
	Plans: []Plan{
		{Key: "free", Title: "Free", Description: "Basic listing", Features: []string{"1 ad", "30 days"}},
		{Key: "standard", Title: "Standard", Description: "More visibility", Features: []string{"5 ads", "Highlighted"}},
		{Key: "premium", Title: "Premium", Description: "Top of the listing", Features: []string{"Unlimited ads", "Top placement"}},
	},
	SortOptions:  listing.SortOptions,
	FuelTypes:    []string{"Petrol", "Diesel", "Hybrid", "Electric"},
	Transmission: []string{"Auto", "Manual", "Tiptronic"},
}

// Catalog serves the static data the post wizard renders.
func (h *Handler) Catalog(c *fiber.Ctx) error {
	return utils.JSONSuccess(c, fiber.StatusOK, catalog)
}
