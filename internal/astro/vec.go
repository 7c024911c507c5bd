// Package astro derives physical quantities from state vectors: speed and the
// point on Earth beneath the spacecraft.
package astro

import (
	"math"

	"github.com/litescript/ls-orbit/internal/ephem"
)

// radToDeg is the degrees-per-radian factor, applied by multiplication.
const radToDeg = 180 / math.Pi

// Vec3 represents a 3D vector in any reference frame.
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the magnitude of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// PositionOf parses the position of a state vector (km).
func PositionOf(sv ephem.StateVector) (Vec3, error) {
	p, err := sv.Position()
	if err != nil {
		return Vec3{}, err
	}
	return Vec3{X: p[0], Y: p[1], Z: p[2]}, nil
}

// VelocityOf parses the velocity of a state vector (km/s).
func VelocityOf(sv ephem.StateVector) (Vec3, error) {
	v, err := sv.Velocity()
	if err != nil {
		return Vec3{}, err
	}
	return Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}
