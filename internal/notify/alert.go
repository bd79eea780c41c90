// Package notify runs the background proximity check: for every user who
// opted in, rank malls around their last known location and dispatch an
// alert for each mall inside their radius, at most once per cooldown
// window per (user, mall) pair.
package notify

import (
	"context"
	"time"
)

// ProximityAlert is the message dispatched when a subscriber is within
// their notification radius of a mall.
type ProximityAlert struct {
	UserID     string    `json:"user_id"`
	VenueID    string    `json:"venue_id"`
	VenueName  string    `json:"venue_name"`
	DistanceKm float64   `json:"distance_km"`
	At         time.Time `json:"at"`
}

// Dispatcher delivers proximity alerts to the notification channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert ProximityAlert) error
}
