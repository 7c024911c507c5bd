package track

import (
	"encoding/json"

	"github.com/litescript/ls-orbit/internal/astro"
	"github.com/litescript/ls-orbit/internal/ephem"
)

// Measure is a derived scalar with its unit.
type Measure struct {
	Value float64 `json:"value"`
	Units string  `json:"units"`
}

// Vector is a three-component quantity as delivered by the feed.
type Vector struct {
	X ephem.Quantity `json:"x"`
	Y ephem.Quantity `json:"y"`
	Z ephem.Quantity `json:"z"`
}

// DatasetView is the whole loaded ephemeris.
type DatasetView struct {
	Header       []ephem.Field       `json:"header"`
	Metadata     []ephem.Field       `json:"metadata"`
	Comments     []string            `json:"comments"`
	StateVectors []ephem.StateVector `json:"state_vectors"`
}

// EpochList is a window of the epoch index. It encodes as an object mapping
// epoch to position; epoch strings sort chronologically, so the encoded key
// order matches the window order.
type EpochList []ephem.Entry

// MarshalJSON implements json.Marshaler.
func (l EpochList) MarshalJSON() ([]byte, error) {
	m := make(map[string]int, len(l))
	for _, e := range l {
		m[e.Epoch] = e.Position
	}
	return json.Marshal(m)
}

// StateVectorView is one record: position in km, velocity in km/s.
type StateVectorView struct {
	Epoch    string `json:"epoch"`
	Position Vector `json:"position"`
	Velocity Vector `json:"velocity"`
}

func newStateVectorView(sv ephem.StateVector) StateVectorView {
	return StateVectorView{
		Epoch:    sv.Epoch,
		Position: Vector{X: sv.X, Y: sv.Y, Z: sv.Z},
		Velocity: Vector{X: sv.XDot, Y: sv.YDot, Z: sv.ZDot},
	}
}

// SpeedView is the instantaneous speed at an epoch.
type SpeedView struct {
	Epoch string  `json:"epoch"`
	Speed Measure `json:"speed"`
}

// LocationView is the sub-point at an epoch. Latitude and longitude are the
// unwrapped spherical-Earth values; Geo is a place description or
// NoMatchDescription.
type LocationView struct {
	Epoch     string          `json:"epoch"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Altitude  Measure         `json:"altitude"`
	Geo       string          `json:"geo"`
	Place     *Place          `json:"place,omitempty"`
	Geohash   string          `json:"geohash,omitempty"`
	Reference *astro.Geodetic `json:"wgs84,omitempty"`
}

// NowView locates the spacecraft at the epoch closest to the current time.
type NowView struct {
	ClosestEpoch   string       `json:"closest_epoch"`
	SecondsFromNow float64      `json:"seconds_from_now"`
	Speed          Measure      `json:"speed"`
	Location       LocationView `json:"location"`
}
