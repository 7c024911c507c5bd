package astro

import (
	"fmt"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/litescript/ls-orbit/internal/ephem"
)

// WGS84SubPoint computes an ellipsoidal sub-point for sv, rotating the inertial
// position by Greenwich sidereal time at the record's epoch. It is reported
// beside SubPoint as a reference and never replaces it.
//
// go-satellite treats the input as TEME; the feed's EME2000 frame differs by
// precession/nutation, which is well under a degree for current epochs.
func WGS84SubPoint(sv ephem.StateVector) (Geodetic, error) {
	pos, err := PositionOf(sv)
	if err != nil {
		return Geodetic{}, fmt.Errorf("wgs84 sub-point at %s: %w", sv.Epoch, err)
	}
	t, err := ephem.ParseEpoch(sv.Epoch)
	if err != nil {
		return Geodetic{}, err
	}

	year, month, day := t.Date()
	hour, minute, sec := t.Clock()
	// JDay takes whole seconds; add the fraction back before GMST.
	jd := satellite.JDay(year, int(month), day, hour, minute, sec)
	jd += float64(t.Nanosecond()) / 1e9 / 86400
	gmst := satellite.ThetaG_JD(jd)

	alt, _, ll := satellite.ECIToLLA(satellite.Vector3{X: pos.X, Y: pos.Y, Z: pos.Z}, gmst)

	return Geodetic{
		LatitudeDeg:  ll.Latitude * radToDeg,
		LongitudeDeg: WrapLongitude(ll.Longitude * radToDeg),
		AltitudeKm:   alt,
	}, nil
}
