// Package feed fetches, parses and caches the ISS orbit ephemeris message.
package feed

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/litescript/ls-orbit/internal/ephem"
)

// XML structures matching the CCSDS OEM feed format

type xmlNDM struct {
	XMLName xml.Name `xml:"ndm"`
	OEM     xmlOEM   `xml:"oem"`
}

type xmlOEM struct {
	Header   xmlFields    `xml:"header"`
	Segments []xmlSegment `xml:"body>segment"`
}

// xmlFields captures every child element in document order.
type xmlFields struct {
	Fields []xmlField `xml:",any"`
}

type xmlField struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type xmlSegment struct {
	Metadata xmlFields `xml:"metadata"`
	Data     xmlData   `xml:"data"`
}

type xmlData struct {
	Comments     []string         `xml:"COMMENT"`
	StateVectors []xmlStateVector `xml:"stateVector"`
}

type xmlStateVector struct {
	Epoch string      `xml:"EPOCH"`
	X     xmlQuantity `xml:"X"`
	Y     xmlQuantity `xml:"Y"`
	Z     xmlQuantity `xml:"Z"`
	XDot  xmlQuantity `xml:"X_DOT"`
	YDot  xmlQuantity `xml:"Y_DOT"`
	ZDot  xmlQuantity `xml:"Z_DOT"`
}

type xmlQuantity struct {
	Units string `xml:"units,attr"`
	Value string `xml:",chardata"`
}

func (q xmlQuantity) quantity() ephem.Quantity {
	return ephem.Quantity{Text: strings.TrimSpace(q.Value), Units: q.Units}
}

func (f xmlFields) fields() []ephem.Field {
	out := make([]ephem.Field, 0, len(f.Fields))
	for _, x := range f.Fields {
		out = append(out, ephem.Field{Name: x.XMLName.Local, Value: strings.TrimSpace(x.Value)})
	}
	return out
}

// Parse decodes an OEM XML document into a validated ephemeris. Only the first
// segment is read; the ISS feed carries exactly one. Numeric fields are kept
// as text and parsed on demand.
func Parse(data []byte) (*ephem.Ephemeris, error) {
	var raw xmlNDM
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: unmarshal OEM XML: %v", ephem.ErrInvalidData, err)
	}
	if len(raw.OEM.Segments) == 0 {
		return nil, fmt.Errorf("%w: OEM has no segment", ephem.ErrInvalidData)
	}

	seg := raw.OEM.Segments[0]
	vectors := make([]ephem.StateVector, 0, len(seg.Data.StateVectors))
	for _, sv := range seg.Data.StateVectors {
		vectors = append(vectors, ephem.StateVector{
			Epoch: strings.TrimSpace(sv.Epoch),
			X:     sv.X.quantity(),
			Y:     sv.Y.quantity(),
			Z:     sv.Z.quantity(),
			XDot:  sv.XDot.quantity(),
			YDot:  sv.YDot.quantity(),
			ZDot:  sv.ZDot.quantity(),
		})
	}

	comments := make([]string, 0, len(seg.Data.Comments))
	for _, c := range seg.Data.Comments {
		comments = append(comments, strings.TrimSpace(c))
	}

	return ephem.New(vectors, ephem.Sections{
		Header:   raw.OEM.Header.fields(),
		Metadata: seg.Metadata.fields(),
		Comments: comments,
	})
}
