package domain

// DefaultNotifyRadiusKm is the background notification radius used until a
// user picks their own.
const DefaultNotifyRadiusKm = 4.0

// Preferences is a user's proximity-notification configuration. Stored
// remotely for signed-in users, on the device for anonymous ones.
type Preferences struct {
	RadiusKm             float64   `json:"radius_km"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	LastLocation         *GeoPoint `json:"last_location,omitempty"`
}

// DefaultPreferences returns the configuration for a user who never set one.
func DefaultPreferences() Preferences {
	return Preferences{
		RadiusKm:             DefaultNotifyRadiusKm,
		NotificationsEnabled: false,
	}
}

// Subscriber is a user eligible for background proximity checks: alerts on,
// last position known.
type Subscriber struct {
	UserID   string
	Location GeoPoint
	RadiusKm float64
}
