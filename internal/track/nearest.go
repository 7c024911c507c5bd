// Package track answers queries over the loaded ephemeris: paged epoch
// listings, per-epoch speed and location, and the "where is it now" composite.
package track

import (
	"math"
	"time"

	"github.com/litescript/ls-orbit/internal/ephem"
)

// Nearest returns the epoch closest to now and the signed offset now - epoch
// in seconds. Every epoch is scanned in order; the first of two equidistant
// epochs wins.
func Nearest(e *ephem.Ephemeris, now time.Time) (string, float64, error) {
	if e == nil || e.Len() == 0 {
		return "", 0, ephem.ErrNotLoaded
	}

	best := 0
	bestDelta := now.Sub(e.Instant(0)).Seconds()
	for i := 1; i < e.Len(); i++ {
		delta := now.Sub(e.Instant(i)).Seconds()
		if math.Abs(delta) < math.Abs(bestDelta) {
			best, bestDelta = i, delta
		}
	}

	return e.At(best).Epoch, bestDelta, nil
}
