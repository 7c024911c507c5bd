package track

import (
	"context"
	"errors"
	"strings"
)

// NoMatchDescription stands in for a place whenever reverse geocoding yields
// nothing, most often because the sub-point is over open ocean.
const NoMatchDescription = "no match (likely over open ocean)"

// ErrNoMatch is returned by a GeoLookup when no place contains the point.
var ErrNoMatch = errors.New("no matching place")

// Place is a reverse-geocoded description of a sub-point.
type Place struct {
	City        string `json:"city,omitempty"`
	Province    string `json:"province,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// Description joins the known parts of the place, most specific first.
func (p Place) Description() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.City, p.Province, p.Country} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// GeoLookup reverse-geocodes a latitude/longitude pair in degrees.
// Implementations return ErrNoMatch when the point has no place.
type GeoLookup interface {
	Reverse(ctx context.Context, lat, lon float64) (Place, error)
}

// GeoRecorder observes the outcome of each reverse-geocoding call.
type GeoRecorder interface {
	ObserveGeoLookup(result string)
}

// Geo lookup outcomes reported to a GeoRecorder.
const (
	GeoMatch    = "match"
	GeoNoMatch  = "no_match"
	GeoError    = "error"
	GeoDisabled = "disabled"
)
