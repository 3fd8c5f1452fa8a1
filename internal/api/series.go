package api

import (
	"errors"
	"net/http"

	"github.com/vmunix/arrwatch/internal/events"
	"github.com/vmunix/arrwatch/internal/registry"
	"github.com/vmunix/arrwatch/internal/rename"
	"github.com/vmunix/arrwatch/internal/scan"
	"github.com/vmunix/arrwatch/internal/source"
	"github.com/vmunix/arrwatch/internal/torrent"
)

func (s *Server) listSeries(w http.ResponseWriter, r *http.Request) {
	series, err := s.deps.Series.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	resp := ListSeriesResponse{Items: make([]SeriesResponse, len(series)), Total: len(series)}
	for i, sr := range series {
		var last *events.StatusUpdate
		if s.deps.Progress != nil {
			last, _ = s.deps.Progress.LastStatus(sr.Ref)
		}
		resp.Items[i] = seriesToResponse(sr, s.deps.Engine.Scanning(sr.Ref), last)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) seriesStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Engine.Status(r.Context(), r.URL.Query().Get("ref"))
	if err != nil {
		s.writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) renamePreview(w http.ResponseWriter, r *http.Request) {
	decisions, err := s.deps.Engine.PreviewRename(r.Context(), r.URL.Query().Get("ref"))
	if err != nil {
		s.writeScanError(w, err)
		return
	}
	if decisions == nil {
		decisions = []rename.Decision{}
	}
	writeJSON(w, http.StatusOK, decisions)
}

// renameSeries reapplies the naming rule to the series' completed torrents.
// It runs synchronously.
func (s *Server) renameSeries(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if err := s.deps.Engine.RenameSeries(r.Context(), ref); err != nil {
		if errors.Is(err, scan.ErrScanInProgress) {
			writeError(w, http.StatusConflict, "SCAN_IN_PROGRESS", "Series is being scanned")
			return
		}
		s.writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RenameResponse{Ref: ref, Message: "rename finished"})
}

// writeScanError maps errors from the engine's read-only operations.
func (s *Server) writeScanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrUnknownSeries):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Series not found")
	case errors.Is(err, source.ErrNoSource):
		writeError(w, http.StatusUnprocessableEntity, "NO_SOURCE", err.Error())
	case errors.Is(err, source.ErrSourceUnavailable), errors.Is(err, source.ErrParseError):
		writeError(w, http.StatusBadGateway, "SOURCE_ERROR", err.Error())
	case errors.Is(err, torrent.ErrBackendUnavailable):
		writeError(w, http.StatusBadGateway, "BACKEND_UNAVAILABLE", err.Error())
	default:
		s.log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}
