package domain

import (
	"fmt"
	"sort"
	"strings"
)

// RankedResult pairs a venue with its distance from the query origin,
// computed fresh on every ranking call.
type RankedResult[T Locatable] struct {
	Venue      T       `json:"venue"`
	DistanceKm float64 `json:"distance_km"`
}

// RankingQuery bounds and filters a single ranking call. It is built per
// screen interaction and never persisted.
type RankingQuery struct {
	// RadiusKm drops venues farther than this, boundary inclusive.
	// nil means unbounded.
	RadiusKm *float64
	// Text is a whitespace-delimited query; every token must appear in a
	// venue's searchable text for it to survive. Empty matches everything.
	Text string
	// Limit truncates the sorted, filtered results to the nearest N.
	// Zero means no truncation.
	Limit int
}

// Rank computes the distance from origin to each venue, filters by text and
// radius, stable-sorts ascending by distance, and truncates to the limit.
//
// Venues with malformed coordinates are skipped rather than failing the
// call; the count of skipped venues is returned so callers can log it. An
// invalid origin fails the whole call.
func Rank[T Locatable](origin GeoPoint, venues []T, query RankingQuery) ([]RankedResult[T], int, error) {
	if err := origin.Validate(); err != nil {
		return nil, 0, fmt.Errorf("origin: %w", err)
	}

	tokens := queryTokens(query.Text)

	results := make([]RankedResult[T], 0, len(venues))
	skipped := 0
	for _, v := range venues {
		d, err := Distance(origin, v.Location())
		if err != nil {
			skipped++
			continue
		}
		if !matchesTokens(v.SearchText(), tokens) {
			continue
		}
		if query.RadiusKm != nil && d > *query.RadiusKm {
			continue
		}
		results = append(results, RankedResult[T]{Venue: v, DistanceKm: d})
	}

	// Stable so equidistant venues keep their input order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceKm < results[j].DistanceKm
	})

	if query.Limit > 0 && len(results) > query.Limit {
		results = results[:query.Limit]
	}
	return results, skipped, nil
}

// MatchesQuery reports whether text contains every whitespace-delimited
// token of query, case-insensitively. An empty query matches everything.
func MatchesQuery(text, query string) bool {
	return matchesTokens(text, queryTokens(query))
}

func queryTokens(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

func matchesTokens(text string, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, tok := range tokens {
		if !strings.Contains(lower, tok) {
			return false
		}
	}
	return true
}
