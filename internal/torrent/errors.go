package torrent

import "errors"

// Sentinel errors for the torrent package.
var (
	// ErrBackendUnavailable is returned when the download client cannot be reached
	// or refuses the session.
	ErrBackendUnavailable = errors.New("download backend unavailable")

	// ErrTorrentNotFound is returned when a hash is not known to the backend.
	ErrTorrentNotFound = errors.New("torrent not found in backend")

	// ErrUnsupportedPayload is returned for payloads that are neither torrent
	// metainfo nor a magnet URI.
	ErrUnsupportedPayload = errors.New("unsupported torrent payload")

	// ErrAddUnconfirmed is returned when the backend accepted an add request
	// but never listed the torrent within the settle window.
	ErrAddUnconfirmed = errors.New("torrent added but not listed by backend")

	// ErrUnsupportedVersion is returned when the backend's API is too old.
	ErrUnsupportedVersion = errors.New("unsupported backend api version")
)
