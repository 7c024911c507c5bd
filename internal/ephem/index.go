package ephem

import (
	"fmt"
	"strconv"
	"strings"
)

// NoLimit selects every entry from the offset to the end of the sequence.
const NoLimit = -1

// Entry pairs an epoch with its position in the sequence.
type Entry struct {
	Epoch    string `json:"epoch"`
	Position int    `json:"position"`
}

// List returns limit entries starting at offset, in chronological order.
// The window must lie entirely inside the sequence; it is never clamped.
func (e *Ephemeris) List(offset, limit int) ([]Entry, error) {
	n := len(e.vectors)
	if offset < 0 || offset > n {
		return nil, fmt.Errorf("%w: offset %d with %d records", ErrOutOfRange, offset, n)
	}
	if limit == NoLimit {
		limit = n - offset
	}
	if limit < 0 || limit > n-offset {
		return nil, fmt.Errorf("%w: offset %d limit %d with %d records", ErrOutOfRange, offset, limit, n)
	}

	entries := make([]Entry, limit)
	for i := range entries {
		entries[i] = Entry{Epoch: e.vectors[offset+i].Epoch, Position: offset + i}
	}
	return entries, nil
}

// Resolve returns the position of the record whose epoch string equals epoch
// exactly. No time tolerance is applied.
func (e *Ephemeris) Resolve(epoch string) (int, error) {
	i, ok := e.byEpoch[epoch]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrEpochNotFound, epoch)
	}
	return i, nil
}

// Get returns the full state vector for epoch.
func (e *Ephemeris) Get(epoch string) (StateVector, error) {
	i, err := e.Resolve(epoch)
	if err != nil {
		return StateVector{}, err
	}
	return e.vectors[i], nil
}

// ParseWindow converts offset/limit query text into List arguments.
// Empty text selects the defaults (0 and NoLimit). Range checks are left to List.
func ParseWindow(offsetText, limitText string) (offset, limit int, err error) {
	offset, limit = 0, NoLimit

	if s := strings.TrimSpace(offsetText); s != "" {
		offset, err = strconv.Atoi(s)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: offset must be an integer, got %q", ErrInvalidParameter, offsetText)
		}
		if offset < 0 {
			return 0, 0, fmt.Errorf("%w: offset %d is negative", ErrOutOfRange, offset)
		}
	}

	if s := strings.TrimSpace(limitText); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: limit must be an integer, got %q", ErrInvalidParameter, limitText)
		}
		if limit < 0 {
			return 0, 0, fmt.Errorf("%w: limit %d is negative", ErrOutOfRange, limit)
		}
	}

	return offset, limit, nil
}
