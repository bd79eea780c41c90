package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var frozenNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func freezeClock(t *testing.T) {
	t.Helper()
	SetClock(clockwork.NewFakeClockAt(frozenNow))
	t.Cleanup(func() { SetClock(nil) })
}

func TestActivePromotions(t *testing.T) {
	freezeClock(t)

	promos := []Promotion{
		{ID: "p-expired", Title: "Expired", EndDate: frozenNow.Add(-24 * time.Hour)},
		{ID: "p-ending-now", Title: "Ending now", EndDate: frozenNow},
		{ID: "p-live", Title: "Live", EndDate: frozenNow.Add(time.Hour)},
		{ID: "p-upcoming", Title: "Upcoming", StartDate: frozenNow.Add(24 * time.Hour), EndDate: frozenNow.Add(48 * time.Hour)},
	}

	active := ActivePromotions(promos)

	require.Len(t, active, 2)
	assert.Equal(t, "p-live", active[0].ID)
	assert.Equal(t, "p-upcoming", active[1].ID)
}

func TestActivePromotions_EndDateMustBeStrictlyFuture(t *testing.T) {
	freezeClock(t)

	active := ActivePromotions([]Promotion{{ID: "p", EndDate: frozenNow}})
	assert.Empty(t, active, "a promotion ending exactly now is no longer active")
}

func TestFilterByCategory(t *testing.T) {
	stores := []Store{
		{ID: "s-1", Name: "Cinema", Categories: []string{"entertainment"}},
		{ID: "s-2", Name: "Coffee", Categories: []string{"food", "cafe"}},
		{ID: "s-3", Name: "Sneakers", Categories: []string{"fashion"}},
	}

	kept := FilterByCategory(stores, "food")
	require.Len(t, kept, 1)
	assert.Equal(t, "s-2", kept[0].ID)
}

func TestFilterByCategory_CaseInsensitive(t *testing.T) {
	stores := []Store{{ID: "s-1", Categories: []string{"Fashion"}}}
	assert.Len(t, FilterByCategory(stores, "fashion"), 1)
}

func TestFilterByCategory_EmptyKeepsAll(t *testing.T) {
	stores := []Store{{ID: "s-1"}, {ID: "s-2"}}
	assert.Len(t, FilterByCategory(stores, ""), 2)
}

func TestSearchText_PerVenueFields(t *testing.T) {
	mall := Mall{Name: "Plaza Norte", Address: "Av Central 100"}
	assert.True(t, MatchesQuery(mall.SearchText(), "central plaza"))

	store := Store{Name: "Brew Bar", Description: "specialty coffee"}
	assert.True(t, MatchesQuery(store.SearchText(), "coffee brew"))

	promo := Promotion{Title: "2x1 Tickets", Description: "weekday matinee", MallName: "Plaza Norte"}
	assert.True(t, MatchesQuery(promo.SearchText(), "tickets norte"))
	assert.False(t, MatchesQuery(promo.SearchText(), "tickets sur"))
}
