package rename

import "errors"

var (
	// ErrPatternNotFound is reported for files whose names carry no episode
	// number. Such files keep their name.
	ErrPatternNotFound = errors.New("episode number not found in file name")

	// ErrCollisionDeleteFailed is reported when a torrent holding the target
	// name could not be deleted. The rename is still attempted.
	ErrCollisionDeleteFailed = errors.New("failed to delete colliding torrent")
)
