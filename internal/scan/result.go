package scan

import (
	"fmt"
	"time"

	"github.com/vmunix/arrwatch/internal/source"
)

// Action is what a scan decided to do with an episode.
type Action string

const (
	ActionDownload Action = "download"
	ActionRename   Action = "rename"
	ActionNone     Action = "none"
)

// Stage names the step an episode failed in.
type Stage string

const (
	StageFetch  Stage = "fetch"
	StageAdd    Stage = "add"
	StageRecord Stage = "record"
	StageWait   Stage = "wait"
	StageRename Stage = "rename"
)

// EpisodeError is a failure isolated to one episode.
type EpisodeError struct {
	Episode source.Episode
	Stage   Stage
	Err     error
}

func (e *EpisodeError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Stage, e.Episode.Name, e.Err)
}

func (e *EpisodeError) Unwrap() error { return e.Err }

// Result summarizes one series scan.
type Result struct {
	Ref      string
	RunID    string
	Episodes int

	Added     int
	Renamed   int
	Unchanged int
	// Skipped counts episodes not processed because the backend went away.
	Skipped int

	Failures []*EpisodeError

	Started  time.Time
	Finished time.Time
}

// Failed reports whether any episode failed.
func (r *Result) Failed() bool {
	return len(r.Failures) > 0
}

func (r *Result) fail(ep source.Episode, stage Stage, err error) *EpisodeError {
	fe := &EpisodeError{Episode: ep, Stage: stage, Err: err}
	r.Failures = append(r.Failures, fe)
	return fe
}

// Summary is a one-line description for notifications.
func (r *Result) Summary() string {
	s := fmt.Sprintf("%d episodes: %d added, %d renamed, %d unchanged", r.Episodes, r.Added, r.Renamed, r.Unchanged)
	if r.Skipped > 0 {
		s += fmt.Sprintf(", %d skipped", r.Skipped)
	}
	if len(r.Failures) > 0 {
		s += fmt.Sprintf(", %d failed", len(r.Failures))
	}
	return s
}

// EpisodeStatus is an episode as seen by Status.
type EpisodeStatus struct {
	Name      string    `json:"name"`
	Tag       string    `json:"tag"`
	Quality   string    `json:"quality,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
	Acquired  bool      `json:"acquired"`
	Hash      string    `json:"hash,omitempty"`
	Progress  float64   `json:"progress"`
	Completed bool      `json:"completed"`
}

// SeriesStatus compares the source's episodes with the backend.
type SeriesStatus struct {
	Ref      string          `json:"ref"`
	Name     string          `json:"name"`
	Episodes []EpisodeStatus `json:"episodes"`
	Acquired int             `json:"acquired"`
	New      int             `json:"new"`
}
