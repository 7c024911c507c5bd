package geo

import (
	"context"

	geohash "github.com/TomiHiltunen/geohash-golang"

	"github.com/litescript/ls-orbit/internal/astro"
	"github.com/litescript/ls-orbit/internal/track"
)

// Geohash encodes a sub-point. Longitude is wrapped and latitude clamped first.
func Geohash(lat, lon float64) string {
	if lat > 90 {
		lat = 90
	} else if lat < -90 {
		lat = -90
	}
	return geohash.Encode(lat, astro.WrapLongitude(lon))
}

// Region is a latitude/longitude box mapped to a place.
type Region struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
	Place          track.Place
}

func (r Region) contains(lat, lon float64) bool {
	return lat >= r.MinLat && lat <= r.MaxLat && lon >= r.MinLon && lon <= r.MaxLon
}

// Static reverse-geocodes against a fixed list of regions. The first region
// containing the point wins.
type Static struct {
	Regions []Region
}

// Reverse implements track.GeoLookup.
func (s Static) Reverse(ctx context.Context, lat, lon float64) (track.Place, error) {
	if err := ctx.Err(); err != nil {
		return track.Place{}, err
	}
	lon = astro.WrapLongitude(lon)
	for _, r := range s.Regions {
		if r.contains(lat, lon) {
			return r.Place, nil
		}
	}
	return track.Place{}, track.ErrNoMatch
}
