package ephem

import (
	"fmt"
	"strconv"
	"time"
)

// EpochLayout is the OEM epoch format: year, day-of-year, clock, UTC designator.
// Fractional seconds are optional on parse.
const EpochLayout = "2006-002T15:04:05Z"

// Byte offsets of the hour and minute digits inside an epoch string.
const (
	hourStart   = 9
	minuteStart = 12
)

// ParseEpoch converts an epoch string to an absolute UTC instant.
// Leap seconds are not modeled.
func ParseEpoch(s string) (time.Time, error) {
	t, err := time.Parse(EpochLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrMalformedEpoch, s, err)
	}
	return t.UTC(), nil
}

// FormatEpoch renders t in the OEM epoch format with millisecond precision.
func FormatEpoch(t time.Time) string {
	return t.UTC().Format("2006-002T15:04:05.000Z")
}

// EpochClock returns the hour and minute fields embedded in an epoch string,
// read directly from their fixed positions.
func EpochClock(s string) (hour, minute int, err error) {
	if len(s) < minuteStart+2 {
		return 0, 0, fmt.Errorf("%w: %q too short", ErrMalformedEpoch, s)
	}
	hour, err = strconv.Atoi(s[hourStart : hourStart+2])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: hour in %q", ErrMalformedEpoch, s)
	}
	minute, err = strconv.Atoi(s[minuteStart : minuteStart+2])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: minute in %q", ErrMalformedEpoch, s)
	}
	return hour, minute, nil
}
