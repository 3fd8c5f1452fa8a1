// Package registry stores the series under watch and what has been acquired
// for each of them.
package registry

import (
	"strings"
	"time"
)

// Series is the desired state for one watched series.
type Series struct {
	Ref           string // series page URL, unique
	SavePath      string
	DisplayName   string
	Season        string // season label used in file names, e.g. "S01"
	Quality       string // optional source-side quality filter
	RenameEnabled bool

	// Tags are the opaque tags acquired so far, in acquisition order.
	Tags []string
	// Markers holds the freshness marker recorded for each tag. Tags whose
	// source publishes no date have no entry.
	Markers     map[string]time.Time
	LastUpdated time.Time // newest marker, zero if none

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Marker returns the stored freshness marker for tag.
func (s *Series) Marker(tag string) (time.Time, bool) {
	t, ok := s.Markers[tag]
	return t, ok
}

// Tracks reports whether tag was acquired for this series.
func (s *Series) Tracks(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (s *Series) validate() error {
	var missing []string
	if strings.TrimSpace(s.Ref) == "" {
		missing = append(missing, "ref")
	}
	if strings.TrimSpace(s.SavePath) == "" {
		missing = append(missing, "save path")
	}
	if strings.TrimSpace(s.DisplayName) == "" {
		missing = append(missing, "display name")
	}
	if len(missing) > 0 {
		return &validationError{fields: missing}
	}
	return nil
}

type validationError struct {
	fields []string
}

func (e *validationError) Error() string {
	return ErrInvalidSeries.Error() + ": missing " + strings.Join(e.fields, ", ")
}

func (e *validationError) Unwrap() error { return ErrInvalidSeries }

// Settings is a partial update of a series. Nil fields are left unchanged.
type Settings struct {
	SavePath      *string
	DisplayName   *string
	Season        *string
	Quality       *string
	RenameEnabled *bool
}

func (u Settings) apply(s *Series) {
	if u.SavePath != nil {
		s.SavePath = *u.SavePath
	}
	if u.DisplayName != nil {
		s.DisplayName = *u.DisplayName
	}
	if u.Season != nil {
		s.Season = *u.Season
	}
	if u.Quality != nil {
		s.Quality = *u.Quality
	}
	if u.RenameEnabled != nil {
		s.RenameEnabled = *u.RenameEnabled
	}
}
