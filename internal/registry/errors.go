package registry

import "errors"

var (
	// ErrUnknownSeries indicates the series reference is not registered.
	ErrUnknownSeries = errors.New("unknown series")

	// ErrDuplicate indicates the series reference is already registered.
	ErrDuplicate = errors.New("series already registered")

	// ErrInvalidSeries indicates a series with missing required fields.
	ErrInvalidSeries = errors.New("invalid series")
)
