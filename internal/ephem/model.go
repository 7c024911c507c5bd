// Package ephem holds the in-memory ephemeris model: state vectors, the epoch
// index built over them, and paged lookup.
package ephem

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Units reported by the feed for position and velocity components.
const (
	UnitsKm   = "km"
	UnitsKmPS = "km/s"
)

// Quantity is a numeric value as delivered by the feed: text plus a unit tag.
// The text is kept verbatim so a corrupt field fails only the query that reads it.
type Quantity struct {
	Text  string `json:"value"`
	Units string `json:"units,omitempty"`
}

// Km returns a kilometre quantity formatted without loss.
func Km(v float64) Quantity {
	return Quantity{Text: strconv.FormatFloat(v, 'f', -1, 64), Units: UnitsKm}
}

// KmPerSec returns a km/s quantity formatted without loss.
func KmPerSec(v float64) Quantity {
	return Quantity{Text: strconv.FormatFloat(v, 'f', -1, 64), Units: UnitsKmPS}
}

// Value parses the quantity text as a finite float64.
func (q Quantity) Value() (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(q.Text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrMalformedField, q.Text)
	}
	return v, nil
}

// StateVector is one epoch of the ephemeris: position (km) and velocity (km/s)
// in the inertial frame of the feed.
type StateVector struct {
	Epoch string   `json:"epoch"`
	X     Quantity `json:"x"`
	Y     Quantity `json:"y"`
	Z     Quantity `json:"z"`
	XDot  Quantity `json:"x_dot"`
	YDot  Quantity `json:"y_dot"`
	ZDot  Quantity `json:"z_dot"`
}

// components parses the three values of a vector, naming the first
// field that fails.
func components(names [3]string, qs [3]Quantity) ([3]float64, error) {
	var out [3]float64
	for i, q := range qs {
		v, err := q.Value()
		if err != nil {
			return out, fmt.Errorf("%s: %w", names[i], err)
		}
		out[i] = v
	}
	return out, nil
}

// Position returns the parsed X, Y, Z components in km.
func (sv StateVector) Position() ([3]float64, error) {
	return components([3]string{"X", "Y", "Z"}, [3]Quantity{sv.X, sv.Y, sv.Z})
}

// Velocity returns the parsed X_DOT, Y_DOT, Z_DOT components in km/s.
func (sv StateVector) Velocity() ([3]float64, error) {
	return components([3]string{"X_DOT", "Y_DOT", "Z_DOT"}, [3]Quantity{sv.XDot, sv.YDot, sv.ZDot})
}

// Field is a named entry of an opaque header or metadata block.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Sections are the auxiliary blocks of a feed. They are stored and returned,
// never interpreted.
type Sections struct {
	Header   []Field  `json:"header,omitempty"`
	Metadata []Field  `json:"metadata,omitempty"`
	Comments []string `json:"comments,omitempty"`
}

func (s Sections) clone() Sections {
	return Sections{
		Header:   append([]Field(nil), s.Header...),
		Metadata: append([]Field(nil), s.Metadata...),
		Comments: append([]string(nil), s.Comments...),
	}
}

// Ephemeris is a validated, immutable sequence of state vectors.
// Construct with New; the zero value is not usable.
type Ephemeris struct {
	vectors  []StateVector
	instants []time.Time
	byEpoch  map[string]int
	sections Sections
}

// New validates vectors and builds an Ephemeris over a private copy of them.
// The sequence must be non-empty with strictly increasing epoch instants.
func New(vectors []StateVector, sections Sections) (*Ephemeris, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: empty state vector sequence", ErrInvalidData)
	}

	e := &Ephemeris{
		vectors:  append([]StateVector(nil), vectors...),
		instants: make([]time.Time, len(vectors)),
		byEpoch:  make(map[string]int, len(vectors)),
		sections: sections.clone(),
	}

	for i, sv := range e.vectors {
		t, err := ParseEpoch(sv.Epoch)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrInvalidData, i, err)
		}
		if i > 0 && !t.After(e.instants[i-1]) {
			return nil, fmt.Errorf("%w: record %d epoch %s not after %s",
				ErrInvalidData, i, sv.Epoch, e.vectors[i-1].Epoch)
		}
		e.instants[i] = t
		e.byEpoch[sv.Epoch] = i
	}

	return e, nil
}

// Len returns the number of state vectors.
func (e *Ephemeris) Len() int {
	return len(e.vectors)
}

// At returns the state vector at position i.
func (e *Ephemeris) At(i int) StateVector {
	return e.vectors[i]
}

// Instant returns the parsed epoch of the state vector at position i.
func (e *Ephemeris) Instant(i int) time.Time {
	return e.instants[i]
}

// Vectors returns a copy of the full sequence in chronological order.
func (e *Ephemeris) Vectors() []StateVector {
	return append([]StateVector(nil), e.vectors...)
}

// Sections returns a copy of the auxiliary blocks.
func (e *Ephemeris) Sections() Sections {
	return e.sections.clone()
}

// First and Last return the epoch strings bounding the sequence.
func (e *Ephemeris) First() string { return e.vectors[0].Epoch }
func (e *Ephemeris) Last() string  { return e.vectors[len(e.vectors)-1].Epoch }
