package ui

import (
	"fmt"
	"strings"

	"github.com/litescript/ls-orbit/internal/astro"
	"github.com/litescript/ls-orbit/internal/track"
)

// NowPanel shows where the spacecraft is at the epoch nearest the clock.
type NowPanel struct {
	view   *track.NowView
	err    error
	width  int
	height int
}

// NewNowPanel creates an empty panel.
func NewNowPanel() NowPanel {
	return NowPanel{}
}

// SetSize updates the panel dimensions.
func (p NowPanel) SetSize(width, height int) NowPanel {
	p.width = width
	p.height = height
	return p
}

// SetNow replaces the displayed view. A non-nil err keeps the last good view
// and shows the error under it.
func (p NowPanel) SetNow(v track.NowView, err error) NowPanel {
	if err != nil {
		p.err = err
		return p
	}
	p.view = &v
	p.err = nil
	return p
}

// View renders the panel.
func (p NowPanel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Now"))
	b.WriteString("\n")

	if p.view == nil {
		if p.err != nil {
			b.WriteString(errorStyle.Render(p.err.Error()))
		} else {
			b.WriteString(dimStyle.Render("Waiting for data..."))
		}
		return b.String()
	}

	v := p.view
	loc := v.Location
	lines := []string{
		field("Epoch", v.ClosestEpoch),
		field("Offset", fmt.Sprintf("%+.0f s", v.SecondsFromNow)),
		field("Latitude", fmt.Sprintf("%.4f°", loc.Latitude)),
		field("Longitude", fmt.Sprintf("%.4f° (%.4f° wrapped)", loc.Longitude, astro.WrapLongitude(loc.Longitude))),
		field("Altitude", fmt.Sprintf("%.2f %s", loc.Altitude.Value, loc.Altitude.Units)),
		field("Speed", fmt.Sprintf("%.4f %s", v.Speed.Value, v.Speed.Units)),
		field("Over", loc.Geo),
	}
	if loc.Geohash != "" {
		lines = append(lines, field("Geohash", loc.Geohash))
	}
	if ref := loc.Reference; ref != nil {
		lines = append(lines, field("WGS-84", fmt.Sprintf("%.4f°, %.4f°, %.2f km", ref.LatitudeDeg, ref.LongitudeDeg, ref.AltitudeKm)))
	}
	b.WriteString(strings.Join(lines, "\n"))

	if p.err != nil {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(p.err.Error()))
	}
	return b.String()
}
