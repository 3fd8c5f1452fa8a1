package scan

import "errors"

var (
	// ErrScanInProgress is returned when a scan of the same series is
	// already running.
	ErrScanInProgress = errors.New("scan already in progress")
	// ErrTorrentGone is returned by the waiter when the torrent disappears
	// from the backend before completing.
	ErrTorrentGone = errors.New("torrent removed before completion")
)
