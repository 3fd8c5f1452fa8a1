package api

import (
	"time"

	"github.com/vmunix/arrwatch/internal/events"
	"github.com/vmunix/arrwatch/internal/registry"
)

// SeriesResponse is the API representation of a watched series.
type SeriesResponse struct {
	Ref           string    `json:"ref"`
	DisplayName   string    `json:"display_name"`
	SavePath      string    `json:"save_path"`
	Season        string    `json:"season,omitempty"`
	Quality       string    `json:"quality,omitempty"`
	RenameEnabled bool      `json:"rename_enabled"`
	Episodes      int       `json:"episodes"`
	LastUpdated   time.Time `json:"last_updated,omitzero"`
	Scanning      bool      `json:"scanning"`
	// Last scan status seen since the daemon started.
	Phase      string    `json:"phase,omitempty"`
	Progress   int       `json:"progress,omitempty"`
	Total      int       `json:"total,omitempty"`
	StatusAt   time.Time `json:"status_at,omitzero"`
	StatusText string    `json:"status_text,omitempty"`
}

// ListSeriesResponse is the response for GET /api/v1/series.
type ListSeriesResponse struct {
	Items []SeriesResponse `json:"items"`
	Total int              `json:"total"`
}

// ScanResponse acknowledges an asynchronous scan request.
type ScanResponse struct {
	Ref     string `json:"ref,omitempty"`
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// RenameResponse reports a finished series rename.
type RenameResponse struct {
	Ref     string `json:"ref"`
	Message string `json:"message"`
}

// SchedulerResponse describes the interval trigger.
type SchedulerResponse struct {
	Running  bool   `json:"running"`
	Cycling  bool   `json:"cycling"`
	Interval string `json:"interval"`
}

// ListEventsResponse is the response for GET /api/v1/events.
type ListEventsResponse struct {
	Items []events.RawEvent `json:"items"`
	Total int               `json:"total"`
}

func seriesToResponse(s *registry.Series, scanning bool, last *events.StatusUpdate) SeriesResponse {
	resp := SeriesResponse{
		Ref:           s.Ref,
		DisplayName:   s.DisplayName,
		SavePath:      s.SavePath,
		Season:        s.Season,
		Quality:       s.Quality,
		RenameEnabled: s.RenameEnabled,
		Episodes:      len(s.Tags),
		LastUpdated:   s.LastUpdated,
		Scanning:      scanning,
	}
	if last != nil {
		resp.Phase = string(last.Phase)
		resp.Progress = last.Progress
		resp.Total = last.Total
		resp.StatusAt = last.OccurredAt()
		resp.StatusText = last.Message
	}
	return resp
}
