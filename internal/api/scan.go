package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/vmunix/arrwatch/internal/registry"
	"github.com/vmunix/arrwatch/internal/scheduler"
)

// triggerScan starts a scan of every series, or of ?ref= only. The scan runs
// in the background; progress is reported through events.
func (s *Server) triggerScan(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		if !s.deps.Scheduler.TriggerAll() {
			writeJSON(w, http.StatusConflict, ScanResponse{Message: "a scan cycle is already running"})
			return
		}
		writeJSON(w, http.StatusAccepted, ScanResponse{Started: true, Message: "scan of all series started"})
		return
	}

	if _, err := s.deps.Series.Get(r.Context(), ref); err != nil {
		if errors.Is(err, registry.ErrUnknownSeries) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Series not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	if s.deps.Engine.Scanning(ref) {
		writeJSON(w, http.StatusConflict, ScanResponse{Ref: ref, Message: "series is already being scanned"})
		return
	}
	s.deps.Scheduler.TriggerOne(ref)
	writeJSON(w, http.StatusAccepted, ScanResponse{Ref: ref, Started: true, Message: "scan started"})
}

func (s *Server) schedulerState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) startScheduler(w http.ResponseWriter, r *http.Request) {
	// The trigger outlives the request; Stop or shutdown ends it.
	err := s.deps.Scheduler.Start(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, scheduler.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, "ALREADY_RUNNING", "Scheduler is already running")
		return
	case errors.Is(err, scheduler.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "SHUTTING_DOWN", "Scheduler is shutting down")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) stopScheduler(w http.ResponseWriter, _ *http.Request) {
	if err := s.deps.Scheduler.Stop(); err != nil {
		if errors.Is(err, scheduler.ErrNotRunning) {
			writeError(w, http.StatusConflict, "NOT_RUNNING", "Scheduler is not running")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) state() SchedulerResponse {
	return SchedulerResponse{
		Running:  s.deps.Scheduler.Running(),
		Cycling:  s.deps.Scheduler.Cycling(),
		Interval: s.deps.Scheduler.Interval().String(),
	}
}
