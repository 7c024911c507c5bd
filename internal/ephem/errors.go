package ephem

import "errors"

// Query errors. Callers match them with errors.Is; every error returned by this
// package and by the store/tracker wraps exactly one of these.
var (
	// ErrNotLoaded means no ephemeris is present (never loaded, or cleared).
	ErrNotLoaded = errors.New("no ephemeris loaded")

	// ErrInvalidParameter means a paging parameter is not an integer.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrOutOfRange means a paging window falls outside the sequence.
	ErrOutOfRange = errors.New("window out of range")

	// ErrEpochNotFound means no record carries the requested epoch string.
	ErrEpochNotFound = errors.New("epoch not found")

	// ErrInvalidData means a payload was rejected at load time.
	ErrInvalidData = errors.New("invalid ephemeris data")

	// ErrMalformedField means a numeric field of a record does not parse.
	ErrMalformedField = errors.New("malformed field")

	// ErrMalformedEpoch means an epoch string does not follow YYYY-DDDTHH:MM:SS.sssZ.
	ErrMalformedEpoch = errors.New("malformed epoch")
)
