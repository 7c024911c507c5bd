// Package ephemtest builds ephemeris fixtures for tests.
package ephemtest

import (
	"time"

	"github.com/litescript/ls-orbit/internal/ephem"
)

// Start is the epoch of the first fixture vector.
var Start = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Vectors returns n equatorial state vectors one minute apart from Start,
// each at X=6000+i km moving at 7.5 km/s along Y.
func Vectors(n int) []ephem.StateVector {
	vs := make([]ephem.StateVector, n)
	for i := range vs {
		vs[i] = ephem.StateVector{
			Epoch: ephem.FormatEpoch(Start.Add(time.Duration(i) * time.Minute)),
			X:     ephem.Km(6000 + float64(i)),
			Y:     ephem.Km(0),
			Z:     ephem.Km(0),
			XDot:  ephem.KmPerSec(0),
			YDot:  ephem.KmPerSec(7.5),
			ZDot:  ephem.KmPerSec(0),
		}
	}
	return vs
}

// Sections returns a small header/metadata/comment set.
func Sections() ephem.Sections {
	return ephem.Sections{
		Header:   []ephem.Field{{Name: "CREATION_DATE", Value: "2024-001T00:00:00.000Z"}, {Name: "ORIGINATOR", Value: "JSC"}},
		Metadata: []ephem.Field{{Name: "OBJECT_NAME", Value: "ISS"}, {Name: "REF_FRAME", Value: "EME2000"}},
		Comments: []string{"Source: fixture", "Units are km and km/s"},
	}
}

// New returns a validated ephemeris of n vectors, panicking on fixture errors.
func New(n int) *ephem.Ephemeris {
	e, err := ephem.New(Vectors(n), Sections())
	if err != nil {
		panic(err)
	}
	return e
}
