package astro

import (
	"fmt"
	"math"

	"github.com/litescript/ls-orbit/internal/ephem"
)

const (
	// MeanEarthRadiusKm is the spherical Earth radius used for altitude.
	MeanEarthRadiusKm = 6371.0

	// longitudeBiasDeg is the empirical offset added after the rotation
	// correction. Its origin is undocumented; see DESIGN.md.
	longitudeBiasDeg = 24.0

	// earthRotationDegPerHour is 360/24.
	earthRotationDegPerHour = 360.0 / 24.0
)

// Geodetic is a sub-point: latitude and longitude in degrees, altitude in km.
type Geodetic struct {
	LatitudeDeg  float64 `json:"latitude"`
	LongitudeDeg float64 `json:"longitude"`
	AltitudeKm   float64 `json:"altitude"`
}

// SubPoint converts the inertial position of sv into latitude, longitude and
// altitude over a spherical Earth.
//
// Latitude is geocentric: the angle of the position vector off the equatorial
// plane, not a WGS-84 geodetic latitude.
//
// Longitude is the inertial longitude atan2(Y, X) rotated by the clock time
// embedded in the epoch string:
//
//	lon = atan2(Y, X) - ((hour-12) + minute/60) * 15 + 24
//
// The result is not wrapped into [-180, 180]; consumers that need a range must
// call WrapLongitude. Altitude is |r| - MeanEarthRadiusKm.
func SubPoint(sv ephem.StateVector) (Geodetic, error) {
	pos, err := PositionOf(sv)
	if err != nil {
		return Geodetic{}, fmt.Errorf("sub-point at %s: %w", sv.Epoch, err)
	}
	hour, minute, err := ephem.EpochClock(sv.Epoch)
	if err != nil {
		return Geodetic{}, err
	}

	x, y, z := pos.X, pos.Y, pos.Z
	lat := math.Atan2(z, math.Sqrt(x*x+y*y)) * radToDeg
	lon := math.Atan2(y, x)*radToDeg -
		((float64(hour)-12)+(float64(minute)/60))*earthRotationDegPerHour +
		longitudeBiasDeg
	alt := math.Sqrt(x*x+y*y+z*z) - MeanEarthRadiusKm

	return Geodetic{LatitudeDeg: lat, LongitudeDeg: lon, AltitudeKm: alt}, nil
}

// WrapLongitude maps any longitude in degrees into (-180, 180].
func WrapLongitude(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}
