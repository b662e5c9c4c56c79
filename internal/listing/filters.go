package listing

import (
	"github.com/fathima-sithara/quickads/internal/models"
)

// Sort keys accepted by Apply.
const (
	SortLatest  = "latest"
	SortOldest  = "oldest"
	SortPopular = "popular"
)

// SortOptions is the order the listing toolbar offers them in.
var SortOptions = []string{SortLatest, SortPopular, SortOldest}

// Filters is the client-side filter panel state. It is never persisted.
type Filters struct {
	Destination []string    `json:"destination"`
	TourGuides  []string    `json:"tourGuides"`
	Services    []string    `json:"services"`
	Tags        []string    `json:"tags"`
	StartDate   models.Date `json:"startDate"`
	EndDate     models.Date `json:"endDate"`
}

// DateError reports an inverted range. Apply ignores the range in that case.
func (f Filters) DateError() bool {
	if f.StartDate.IsZero() || f.EndDate.IsZero() {
		return false
	}
	return f.StartDate.After(f.EndDate.Time)
}

// CanReset is true when any filter is set.
func (f Filters) CanReset() bool {
	return len(f.Destination) > 0 ||
		len(f.TourGuides) > 0 ||
		len(f.Services) > 0 ||
		len(f.Tags) > 0 ||
		(!f.StartDate.IsZero() && !f.EndDate.IsZero())
}

// NotFound tells the view to render the "no results" state.
func NotFound(result []models.AdPost, f Filters) bool {
	return len(result) == 0 && f.CanReset()
}
