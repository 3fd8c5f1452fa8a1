package torrent

import qbt "github.com/autobrr/go-qbittorrent"

// stateMap collapses qBittorrent's states into the backend-neutral set.
var stateMap = map[qbt.TorrentState]State{
	qbt.TorrentStateQueuedDl:           StateQueued,
	qbt.TorrentStateQueuedUp:           StateQueued,
	qbt.TorrentStateCheckingDl:         StateChecking,
	qbt.TorrentStateCheckingUp:         StateChecking,
	qbt.TorrentStateCheckingResumeData: StateChecking,
	qbt.TorrentStateMoving:             StateChecking,
	qbt.TorrentStateAllocating:         StateDownloading,
	qbt.TorrentStateMetaDl:             StateDownloading,
	qbt.TorrentStateDownloading:        StateDownloading,
	qbt.TorrentStateStalledDl:          StateDownloading,
	qbt.TorrentStateForcedDl:           StateDownloading,
	qbt.TorrentStateUploading:          StateSeeding,
	qbt.TorrentStateStalledUp:          StateSeeding,
	qbt.TorrentStateForcedUp:           StateSeeding,
	qbt.TorrentStatePausedDl:           StatePaused,
	qbt.TorrentStatePausedUp:           StatePaused,
	qbt.TorrentStateStoppedDl:          StatePaused,
	qbt.TorrentStateStoppedUp:          StatePaused,
	qbt.TorrentStateError:              StateError,
	qbt.TorrentStateMissingFiles:       StateError,
}

// mapState maps a qBittorrent state. Unknown states are treated as queued.
func mapState(s qbt.TorrentState) State {
	if st, ok := stateMap[s]; ok {
		return st
	}
	return StateQueued
}

// isCompleted is the completion rule shared by every caller: all pieces are
// present, or the backend already seeds the torrent.
func isCompleted(progress float64, state State) bool {
	return progress >= 1.0 || state == StateSeeding
}
