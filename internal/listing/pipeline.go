// Package listing derives the displayed subset of ads from the fetched
// collection. Everything here is pure and safe for concurrent use.
package listing

import (
	"cmp"
	"slices"
	"strings"

	"github.com/fathima-sithara/quickads/internal/models"
)

// Apply runs search, sort, destination, tag/service/guide and date filters in
// that order. The input slice is never modified.
func Apply(items []models.AdPost, f Filters, sortKey, query string) []models.AdPost {
	if len(items) == 0 {
		return []models.AdPost{}
	}
	out := Search(items, query)
	out = Sort(out, sortKey)

	if len(f.Destination) > 0 {
		out = keep(out, func(p models.AdPost) bool {
			return slices.Contains(f.Destination, p.Destination)
		})
	}
	if len(f.Tags) > 0 {
		out = keep(out, func(p models.AdPost) bool { return intersects(p.Tags, f.Tags) })
	}
	if len(f.Services) > 0 {
		out = keep(out, func(p models.AdPost) bool { return intersects(p.Services, f.Services) })
	}
	if len(f.TourGuides) > 0 {
		out = keep(out, func(p models.AdPost) bool {
			for _, g := range p.TourGuides {
				if slices.Contains(f.TourGuides, g.ID) {
					return true
				}
			}
			return false
		})
	}
	if !f.StartDate.IsZero() && !f.EndDate.IsZero() && !f.DateError() {
		out = keep(out, func(p models.AdPost) bool { return overlaps(p.Available, f) })
	}
	return out
}

// Search keeps items whose model, brand, description, destination or price
// contains query, ignoring case. An empty query returns a copy of items.
func Search(items []models.AdPost, query string) []models.AdPost {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return slices.Clone(items)
	}
	return keep(items, func(p models.AdPost) bool {
		for _, field := range []string{p.Model, p.Brand, p.Description, p.Destination, p.Price} {
			if strings.Contains(strings.ToLower(field), q) {
				return true
			}
		}
		return false
	})
}

// Sort returns a stably sorted copy. Unknown keys keep input order.
func Sort(items []models.AdPost, key string) []models.AdPost {
	out := slices.Clone(items)
	switch key {
	case SortLatest:
		slices.SortStableFunc(out, func(a, b models.AdPost) int {
			return b.CreatedAt.Compare(a.CreatedAt.Time)
		})
	case SortOldest:
		slices.SortStableFunc(out, func(a, b models.AdPost) int {
			return a.CreatedAt.Compare(b.CreatedAt.Time)
		})
	case SortPopular:
		slices.SortStableFunc(out, func(a, b models.AdPost) int {
			return cmp.Compare(b.TotalViews, a.TotalViews)
		})
	}
	return out
}

func keep(items []models.AdPost, pred func(models.AdPost) bool) []models.AdPost {
	out := make([]models.AdPost, 0, len(items))
	for _, p := range items {
		if pred(p) {
			out = append(out, p)
		}
	}
	return out
}

func intersects(have, want []string) bool {
	for _, h := range have {
		if slices.Contains(want, h) {
			return true
		}
	}
	return false
}

// overlaps treats a missing bound on the item as open-ended.
func overlaps(a models.Availability, f Filters) bool {
	if a.StartDate.IsZero() && a.EndDate.IsZero() {
		return false
	}
	if !a.EndDate.IsZero() && a.EndDate.Before(f.StartDate.Time) {
		return false
	}
	if !a.StartDate.IsZero() && a.StartDate.After(f.EndDate.Time) {
		return false
	}
	return true
}
