package track

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/litescript/ls-orbit/internal/state"
)

// WriteNow writes a single-line "now" report.
func WriteNow(w io.Writer, v NowView) {
	fmt.Fprintf(w, "%s (%+.0fs)  lat %7.3f  lon %8.3f  alt %6.1f %s  v %.3f %s  %s\n",
		v.ClosestEpoch,
		v.SecondsFromNow,
		v.Location.Latitude,
		v.Location.Longitude,
		v.Location.Altitude.Value, v.Location.Altitude.Units,
		v.Speed.Value, v.Speed.Units,
		v.Location.Geo,
	)
}

// WriteSummary writes a text summary of the store status and recent events.
func WriteSummary(w io.Writer, st state.Status, events []state.Event) {
	fmt.Fprintf(w, "Ephemeris Status @ %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintln(w, strings.Repeat("─", 60))

	if !st.Loaded {
		fmt.Fprintln(w, "No ephemeris loaded")
	} else {
		fmt.Fprintf(w, "%-10s %s\n", "Source", st.Source)
		fmt.Fprintf(w, "%-10s %s\n", "Loaded", st.LoadedAt.UTC().Format(time.RFC3339))
		fmt.Fprintf(w, "%-10s %d\n", "Records", st.Records)
		fmt.Fprintf(w, "%-10s %s\n", "First", st.FirstEpoch)
		fmt.Fprintf(w, "%-10s %s\n", "Last", st.LastEpoch)
	}

	if len(events) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Recent events")
	fmt.Fprintln(w, strings.Repeat("─", 60))
	for _, e := range events {
		line := fmt.Sprintf("%s %-13s %-8s", e.Timestamp.UTC().Format("15:04:05"), e.Type, e.Source)
		if e.Records > 0 {
			line += fmt.Sprintf(" %d records", e.Records)
		}
		if e.Detail != "" {
			line += " " + e.Detail
		}
		fmt.Fprintln(w, line)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
