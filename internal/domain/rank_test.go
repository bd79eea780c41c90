package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kmPtr(v float64) *float64 { return &v }

// testMalls returns malls at increasing distance from mexicoCity, with the
// nearest last so tests catch a missing sort.
func testMalls() []Mall {
	return []Mall{
		{ID: "m-puebla", Name: "Angelopolis Center", Address: "Puebla", Geo: GeoPoint{Lat: 19.0414, Lon: -98.2063}},
		{ID: "m-toluca", Name: "Galerias Toluca", Address: "Toluca", Geo: GeoPoint{Lat: 19.2826, Lon: -99.6557}},
		{ID: "m-norte", Name: "Plaza Norte Shopping", Address: "Av Lindavista Norte", Geo: GeoPoint{Lat: 19.4892, Lon: -99.1277}},
		{ID: "m-centro", Name: "Centro Plaza", Address: "Centro Historico", Geo: GeoPoint{Lat: 19.4326, Lon: -99.1332}},
	}
}

func TestRank_SortedAscendingByDistance(t *testing.T) {
	results, skipped, err := Rank(mexicoCity, testMalls(), RankingQuery{})
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, results, 4)

	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].DistanceKm, results[i].DistanceKm,
			"results must be non-decreasing in distance")
	}
	assert.Equal(t, "m-centro", results[0].Venue.ID, "venue at the origin ranks first")
	assert.Zero(t, results[0].DistanceKm)
}

func TestRank_EmptyInput(t *testing.T) {
	results, skipped, err := Rank(mexicoCity, []Mall{}, RankingQuery{})
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Empty(t, results)
}

func TestRank_InvalidOrigin(t *testing.T) {
	_, _, err := Rank(GeoPoint{Lat: 95, Lon: 0}, testMalls(), RankingQuery{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}

func TestRank_SkipsMalformedVenues(t *testing.T) {
	malls := append(testMalls(), Mall{ID: "m-bad", Name: "Broken", Geo: GeoPoint{Lat: 400, Lon: 0}})

	results, skipped, err := Rank(mexicoCity, malls, RankingQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Len(t, results, 4)
	for _, r := range results {
		assert.NotEqual(t, "m-bad", r.Venue.ID)
	}
}

func TestRank_RadiusFilter(t *testing.T) {
	// Toluca is ~57 km out, Puebla ~107 km.
	results, _, err := Rank(mexicoCity, testMalls(), RankingQuery{RadiusKm: kmPtr(60)})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.LessOrEqual(t, r.DistanceKm, 60.0)
	}
}

func TestRank_RadiusBoundaryInclusive(t *testing.T) {
	malls := testMalls()

	// Use the exact computed distance as the radius; the venue on the
	// boundary must survive (<=, not <).
	boundary, err := Distance(mexicoCity, malls[1].Geo)
	require.NoError(t, err)

	results, _, err := Rank(mexicoCity, malls, RankingQuery{RadiusKm: kmPtr(boundary)})
	require.NoError(t, err)

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Venue.ID)
	}
	assert.Contains(t, ids, "m-toluca", "venue exactly at the radius is included")
	assert.NotContains(t, ids, "m-puebla")
}

func TestRank_RadiusZero(t *testing.T) {
	results, _, err := Rank(mexicoCity, testMalls(), RankingQuery{RadiusKm: kmPtr(0)})
	require.NoError(t, err)
	require.Len(t, results, 1, "radius 0 keeps only venues at the origin")
	assert.Equal(t, "m-centro", results[0].Venue.ID)
}

func TestRank_LimitKeepsNearest(t *testing.T) {
	results, _, err := Rank(mexicoCity, testMalls(), RankingQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "m-centro", results[0].Venue.ID)
	assert.Equal(t, "m-norte", results[1].Venue.ID)
}

func TestRank_RadiusAppliedBeforeLimit(t *testing.T) {
	// With radius 60 the candidate set is {centro, norte, toluca}; limit 2
	// must keep the nearest two of those, never a venue beyond the radius.
	results, _, err := Rank(mexicoCity, testMalls(), RankingQuery{RadiusKm: kmPtr(60), Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.LessOrEqual(t, r.DistanceKm, 60.0)
	}
}

func TestRank_TextFilterMultiToken(t *testing.T) {
	results, _, err := Rank(mexicoCity, testMalls(), RankingQuery{Text: "plaza norte"})
	require.NoError(t, err)
	require.Len(t, results, 1, "both tokens must match the same venue")
	assert.Equal(t, "m-norte", results[0].Venue.ID)
}

func TestRank_TextFilterNearMiss(t *testing.T) {
	// "plaza" matches two venues but "sur" matches none of them.
	results, _, err := Rank(mexicoCity, testMalls(), RankingQuery{Text: "plaza sur"})
	require.NoError(t, err)
	assert.Empty(t, results, "AND-of-tokens: a venue matching only some tokens is dropped")
}

func TestRank_TextFilterCaseInsensitive(t *testing.T) {
	results, _, err := Rank(mexicoCity, testMalls(), RankingQuery{Text: "GALERIAS toluca"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "m-toluca", results[0].Venue.ID)
}

func TestRank_FilterCompositionOrderIndependent(t *testing.T) {
	// Text-then-radius and radius-then-text must keep the same venues.
	both, _, err := Rank(mexicoCity, testMalls(), RankingQuery{Text: "plaza", RadiusKm: kmPtr(60)})
	require.NoError(t, err)

	textOnly, _, err := Rank(mexicoCity, testMalls(), RankingQuery{Text: "plaza"})
	require.NoError(t, err)
	survivors := make([]Mall, 0, len(textOnly))
	for _, r := range textOnly {
		survivors = append(survivors, r.Venue)
	}
	radiusAfter, _, err := Rank(mexicoCity, survivors, RankingQuery{RadiusKm: kmPtr(60)})
	require.NoError(t, err)

	require.Equal(t, len(both), len(radiusAfter))
	for i := range both {
		assert.Equal(t, both[i].Venue.ID, radiusAfter[i].Venue.ID)
	}
}

func TestRank_Idempotent(t *testing.T) {
	query := RankingQuery{Text: "plaza", RadiusKm: kmPtr(100), Limit: 3}

	first, _, err := Rank(mexicoCity, testMalls(), query)
	require.NoError(t, err)
	second, _, err := Rank(mexicoCity, testMalls(), query)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("identical inputs produced different rankings (-first +second):\n%s", diff)
	}
}

func TestRank_StableTieOrder(t *testing.T) {
	// Two venues at the same coordinate keep their input order.
	same := GeoPoint{Lat: 19.5, Lon: -99.2}
	malls := []Mall{
		{ID: "m-first", Name: "First", Geo: same},
		{ID: "m-second", Name: "Second", Geo: same},
	}

	results, _, err := Rank(mexicoCity, malls, RankingQuery{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "m-first", results[0].Venue.ID)
	assert.Equal(t, "m-second", results[1].Venue.ID)
}

func TestMatchesQuery(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		query string
		want  bool
	}{
		{"empty query matches", "Plaza Norte Shopping", "", true},
		{"single token", "Plaza Norte Shopping", "norte", true},
		{"all tokens present", "Plaza Norte Shopping", "plaza norte", true},
		{"one token missing", "Plaza Norte Shopping", "plaza sur", false},
		{"case insensitive", "PLAZA NORTE", "norte", true},
		{"whitespace only query matches", "anything", "   ", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MatchesQuery(tc.text, tc.query))
		})
	}
}
