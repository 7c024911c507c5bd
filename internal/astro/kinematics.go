package astro

import (
	"fmt"

	"github.com/litescript/ls-orbit/internal/ephem"
)

// Speed returns the instantaneous speed of a state vector in km/s: the
// Euclidean norm of its velocity, unclamped.
func Speed(sv ephem.StateVector) (float64, error) {
	v, err := VelocityOf(sv)
	if err != nil {
		return 0, fmt.Errorf("speed at %s: %w", sv.Epoch, err)
	}
	return v.Norm(), nil
}
