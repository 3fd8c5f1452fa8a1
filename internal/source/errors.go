package source

import "errors"

var (
	// ErrNoSource is returned when no source is registered for a host.
	ErrNoSource = errors.New("no source for host")

	// ErrSourceUnavailable is returned when a series page cannot be fetched.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrParseError is returned when a series page has an unexpected layout.
	ErrParseError = errors.New("source page parse error")

	// ErrPayloadFetchFailed is returned when an episode payload cannot be
	// downloaded.
	ErrPayloadFetchFailed = errors.New("payload fetch failed")
)
