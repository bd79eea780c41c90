// Package domain models shopping venues and the proximity ranking engine.
//
// # Venues
//
// A venue is anything the app can point a user at: a Mall (a physical
// shopping center with a fixed coordinate) or a Promotion (a time-bounded
// offer from a store inside a mall, which inherits the mall's coordinate).
// Both satisfy [Locatable], the capability the ranking engine needs. Stores
// themselves have no coordinate of their own; they are listed within a mall
// and filtered by category and text only.
//
// # Coordinates
//
// All coordinates are WGS-84 decimal degrees. Latitude must lie in
// [-90, 90] and longitude in [-180, 180]; anything else is rejected with
// [ErrInvalidCoordinate] rather than clamped, because a clamped coordinate
// silently reorders results. Distances are great-circle kilometers from the
// Haversine formula with a mean Earth radius of 6371 km. The formula is
// symmetric and returns zero for identical points, which the tests pin down
// to 1e-9 km.
//
// # Ranking
//
// [Rank] turns an origin and a venue slice into a distance-ordered result
// list. The stages run in a fixed order:
//
//  1. compute the distance to each venue, skipping (and counting) venues
//     with malformed coordinates
//  2. keep venues whose searchable text contains every whitespace token of
//     the query, case-insensitively
//  3. keep venues within the radius, boundary inclusive (<=)
//  4. stable-sort ascending by distance, so equidistant venues keep their
//     fetch order
//  5. truncate to the limit
//
// The radius filter runs before the limit so "nearest N inside R" never
// returns a venue outside R. A radius of zero is honored literally: only
// venues at the origin itself survive. A nil radius means unbounded, which
// is how the general mall list queries.
//
// Each call is independent and allocates a fresh result slice; callers
// re-rank from scratch on every new location fix, keystroke, or fetch, and
// discard whatever they rendered before.
//
// # Promotion windows
//
// A promotion is active while its end date is strictly in the future. The
// package clock (swappable via [SetClock]) decides what "now" means, so the
// foreground feed and the background notifier agree on activity and tests
// can freeze time.
package domain
