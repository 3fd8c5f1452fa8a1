// Package torrent drives the download backend that fetches and stores episodes.
package torrent

import (
	"context"
	"strings"
)

// State is the lifecycle state of a torrent as reported by the backend.
type State string

const (
	StateQueued      State = "queued"
	StateChecking    State = "checking"
	StateDownloading State = "downloading"
	StateSeeding     State = "seeding"
	StatePaused      State = "paused"
	StateError       State = "error"
)

// Torrent is a torrent owned by the backend. It is only read and commanded,
// never cached across calls.
type Torrent struct {
	Hash     string
	Name     string
	Tags     []string
	SavePath string
	Progress float64 // 0..1
	State    State
}

// HasTag reports whether the torrent carries tag.
func (t Torrent) HasTag(tag string) bool {
	for _, v := range t.Tags {
		if v == tag {
			return true
		}
	}
	return false
}

// Completed reports whether the torrent has every piece on disk.
func (t Torrent) Completed() bool {
	return isCompleted(t.Progress, t.State)
}

// Status is the live state of a single torrent.
type Status struct {
	Hash      string
	State     State
	Progress  float64
	Completed bool
}

// Client is the download backend.
type Client interface {
	// AddTorrent hands a payload to the backend with tag attached and returns
	// the hash of the torrent once the backend lists it.
	AddTorrent(ctx context.Context, payload Payload, savePath, tag string) (hash string, err error)
	// ListTorrents returns every torrent known to the backend.
	ListTorrents(ctx context.Context) ([]Torrent, error)
	// ListFiles returns the relative file names of a torrent.
	ListFiles(ctx context.Context, hash string) ([]string, error)
	// RenameFile renames one file inside a torrent.
	RenameFile(ctx context.Context, hash, oldName, newName string) error
	// DeleteTorrent removes a torrent, optionally purging its files from disk.
	DeleteTorrent(ctx context.Context, hash string, purgeFiles bool) error
	// Status returns the live state of a torrent, or ErrTorrentNotFound.
	Status(ctx context.Context, hash string) (*Status, error)
	// Version returns the backend's API version.
	Version(ctx context.Context) (string, error)
}

// FindByTag returns the first torrent carrying tag.
func FindByTag(torrents []Torrent, tag string) (Torrent, bool) {
	for _, t := range torrents {
		if t.HasTag(tag) {
			return t, true
		}
	}
	return Torrent{}, false
}

// SplitTags parses the backend's comma separated tag list.
func SplitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}
