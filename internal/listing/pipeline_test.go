package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathima-sithara/quickads/internal/models"
)

func modelNames(posts []models.AdPost) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Model
	}
	return out
}

func sample() []models.AdPost {
	return []models.AdPost{
		{ID: "1", Model: "Civic", Brand: "Honda", CreatedAt: models.MustDate("2024-01-01"), TotalViews: 5},
		{ID: "2", Model: "Corolla", Brand: "Toyota", CreatedAt: models.MustDate("2024-06-01"), TotalViews: 50},
	}
}

func TestEmptyInputYieldsEmpty(t *testing.T) {
	f := Filters{Destination: []string{"Colombo"}, Tags: []string{"x"}}
	for _, in := range [][]models.AdPost{nil, {}} {
		out := Apply(in, f, SortPopular, "civ")
		require.NotNil(t, out)
		assert.Empty(t, out)
	}
}

func TestPopularSort(t *testing.T) {
	out := Apply(sample(), Filters{}, SortPopular, "")
	assert.Equal(t, []string{"Corolla", "Civic"}, modelNames(out))
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, []string{"Civic"}, modelNames(Apply(sample(), Filters{}, "", "civ")))
	assert.Equal(t, []string{"Corolla"}, modelNames(Apply(sample(), Filters{}, "", "TOYO")))
	assert.Equal(t, []string{"Civic", "Corolla"}, modelNames(Apply(sample(), Filters{}, "", "   ")))
}

func TestSearchMatchesAnyField(t *testing.T) {
	items := []models.AdPost{
		{Model: "A", Description: "Low mileage, single owner"},
		{Model: "B", Destination: "Kandy"},
		{Model: "C", Price: "4500000"},
		{Model: "D"},
	}
	assert.Equal(t, []string{"A"}, modelNames(Search(items, "OWNER")))
	assert.Equal(t, []string{"B"}, modelNames(Search(items, "kand")))
	assert.Equal(t, []string{"C"}, modelNames(Search(items, "4500")))
	assert.Empty(t, Search(items, "success"))
}

func TestSortIsStable(t *testing.T) {
	day := models.MustDate("2024-03-03")
	items := []models.AdPost{
		{Model: "first", CreatedAt: day, TotalViews: 1},
		{Model: "second", CreatedAt: day, TotalViews: 1},
		{Model: "third", CreatedAt: day, TotalViews: 1},
	}
	for _, key := range []string{SortLatest, SortOldest, SortPopular, "unknown"} {
		assert.Equal(t, []string{"first", "second", "third"}, modelNames(Sort(items, key)), key)
	}
}

func TestLatestAndOldest(t *testing.T) {
	assert.Equal(t, []string{"Corolla", "Civic"}, modelNames(Apply(sample(), Filters{}, SortLatest, "")))
	assert.Equal(t, []string{"Civic", "Corolla"}, modelNames(Apply(sample(), Filters{}, SortOldest, "")))
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	in := sample()
	_ = Apply(in, Filters{}, SortPopular, "")
	assert.Equal(t, "Civic", in[0].Model)
}

func TestDestinationFilter(t *testing.T) {
	items := []models.AdPost{
		{Model: "a", Destination: "Colombo"},
		{Model: "b", Destination: "Kandy"},
	}
	out := Apply(items, Filters{Destination: []string{"Colombo"}}, "", "")
	assert.Equal(t, []string{"a"}, modelNames(out))
}

func TestIntersectionFilters(t *testing.T) {
	items := []models.AdPost{
		{Model: "a", Tags: []string{"suv", "hybrid"}, Services: []string{"delivery"}, TourGuides: []models.TourGuide{{ID: "g1"}}},
		{Model: "b", Tags: []string{"sedan"}, Services: []string{"warranty"}, TourGuides: []models.TourGuide{{ID: "g2"}}},
		{Model: "c"},
	}
	assert.Equal(t, []string{"a"}, modelNames(Apply(items, Filters{Tags: []string{"hybrid", "coupe"}}, "", "")))
	assert.Equal(t, []string{"b"}, modelNames(Apply(items, Filters{Services: []string{"warranty"}}, "", "")))
	assert.Equal(t, []string{"a", "b"}, modelNames(Apply(items, Filters{TourGuides: []string{"g1", "g2"}}, "", "")))
}

func TestDateRangeOverlap(t *testing.T) {
	items := []models.AdPost{
		{Model: "jan", Available: models.Availability{StartDate: models.MustDate("2024-01-01"), EndDate: models.MustDate("2024-01-31")}},
		{Model: "mar", Available: models.Availability{StartDate: models.MustDate("2024-03-01"), EndDate: models.MustDate("2024-03-31")}},
		{Model: "open", Available: models.Availability{StartDate: models.MustDate("2024-01-20")}},
		{Model: "none"},
	}
	f := Filters{StartDate: models.MustDate("2024-01-15"), EndDate: models.MustDate("2024-02-10")}
	assert.False(t, f.DateError())
	assert.Equal(t, []string{"jan", "open"}, modelNames(Apply(items, f, "", "")))

	half := Filters{StartDate: models.MustDate("2024-01-15")}
	assert.Len(t, Apply(items, half, "", ""), 4)
}

func TestInvertedDateRangeIsInert(t *testing.T) {
	items := []models.AdPost{
		{Model: "jan", Available: models.Availability{StartDate: models.MustDate("2024-01-01"), EndDate: models.MustDate("2024-01-31")}},
		{Model: "none"},
	}
	f := Filters{StartDate: models.MustDate("2024-05-01"), EndDate: models.MustDate("2024-01-01")}
	assert.True(t, f.DateError())
	assert.Equal(t, []string{"jan", "none"}, modelNames(Apply(items, f, "", "")))
}

func TestCanResetAndNotFound(t *testing.T) {
	assert.False(t, Filters{}.CanReset())
	assert.True(t, Filters{Services: []string{"x"}}.CanReset())
	assert.True(t, NotFound(nil, Filters{Tags: []string{"x"}}))
	assert.False(t, NotFound(nil, Filters{}))
}
