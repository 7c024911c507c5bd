// Package geo implements reverse geocoding for sub-points.
package geo

import (
	"context"
	"errors"
	"fmt"

	"github.com/sams96/rgeo"
	"github.com/twpayne/go-geom"

	"github.com/litescript/ls-orbit/internal/astro"
	"github.com/litescript/ls-orbit/internal/track"
)

// Rgeo reverse-geocodes against offline boundary polygons.
type Rgeo struct {
	r *rgeo.Rgeo
}

// DefaultDatasets are the polygon sets loaded by NewRgeo when none are given.
func DefaultDatasets() []func() []byte {
	return []func() []byte{rgeo.Countries10, rgeo.Provinces10, rgeo.Cities10}
}

// NewRgeo loads the given datasets, or DefaultDatasets if none are given.
// Loading decompresses every polygon and takes a few seconds.
func NewRgeo(datasets ...func() []byte) (*Rgeo, error) {
	if len(datasets) == 0 {
		datasets = DefaultDatasets()
	}
	r, err := rgeo.New(datasets...)
	if err != nil {
		return nil, fmt.Errorf("load rgeo datasets: %w", err)
	}
	return &Rgeo{r: r}, nil
}

type reverseResult struct {
	loc rgeo.Location
	err error
}

// Reverse implements track.GeoLookup. Longitude is wrapped into range first.
func (g *Rgeo) Reverse(ctx context.Context, lat, lon float64) (track.Place, error) {
	if err := ctx.Err(); err != nil {
		return track.Place{}, err
	}

	done := make(chan reverseResult, 1)
	go func() {
		loc, err := g.r.ReverseGeocode(geom.Coord{astro.WrapLongitude(lon), lat})
		done <- reverseResult{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return track.Place{}, ctx.Err()
	case res := <-done:
		if errors.Is(res.err, rgeo.ErrLocationNotFound) {
			return track.Place{}, track.ErrNoMatch
		}
		if res.err != nil {
			return track.Place{}, fmt.Errorf("reverse geocode: %w", res.err)
		}
		return track.Place{
			City:        res.loc.City,
			Province:    res.loc.Province,
			Country:     res.loc.Country,
			CountryCode: res.loc.CountryCode2,
		}, nil
	}
}
