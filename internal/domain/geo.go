package domain

import (
	"errors"
	"fmt"
	"math"
)

// earthRadiusKm is the mean Earth radius used by the Haversine formula.
const earthRadiusKm = 6371.0

// ErrInvalidCoordinate reports a latitude or longitude outside the valid
// WGS-84 range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// GeoPoint is a WGS-84 latitude/longitude pair in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks the point against the valid WGS-84 ranges. Out-of-range
// values are a caller error and are never clamped.
func (p GeoPoint) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v not in [-90, 90]", ErrInvalidCoordinate, p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %v not in [-180, 180]", ErrInvalidCoordinate, p.Lon)
	}
	return nil
}

// Distance returns the great-circle distance between a and b in kilometers
// using the Haversine formula. It is symmetric and zero for identical points.
func Distance(a, b GeoPoint) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}

	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLon := degreesToRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c, nil
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
