// Package api implements the daemon's ops HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vmunix/arrwatch/internal/events"
	"github.com/vmunix/arrwatch/internal/registry"
	"github.com/vmunix/arrwatch/internal/rename"
	"github.com/vmunix/arrwatch/internal/scan"
)

// ErrMissingDependency is returned when a required dependency is nil.
var ErrMissingDependency = errors.New("missing required dependency")

// SeriesStore reads the watched series.
type SeriesStore interface {
	Get(ctx context.Context, ref string) (*registry.Series, error)
	List(ctx context.Context) ([]*registry.Series, error)
}

// Engine is the part of the scan engine the API drives.
type Engine interface {
	Status(ctx context.Context, ref string) (*scan.SeriesStatus, error)
	PreviewRename(ctx context.Context, ref string) ([]rename.Decision, error)
	RenameSeries(ctx context.Context, ref string) error
	Scanning(ref string) bool
}

// Scheduler triggers scans.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop() error
	Running() bool
	Cycling() bool
	Interval() time.Duration
	TriggerAll() bool
	TriggerOne(ref string)
}

// EventReader reads the persisted event log.
type EventReader interface {
	Since(t time.Time) ([]events.RawEvent, error)
	ForSeries(ref string) ([]events.RawEvent, error)
	ForRun(runID string) ([]events.RawEvent, error)
	Recent(limit int) ([]events.RawEvent, error)
}

// StatusSource returns the newest scan status of a series.
type StatusSource interface {
	LastStatus(ref string) (*events.StatusUpdate, bool)
}

// Deps contains all dependencies for the API server.
// Series and Engine are required; the rest may be nil.
type Deps struct {
	Series    SeriesStore
	Engine    Engine
	Scheduler Scheduler
	EventLog  EventReader
	Progress  StatusSource
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// Validate checks that all required dependencies are provided.
func (d Deps) Validate() error {
	if d.Series == nil {
		return errors.New("series store is required")
	}
	if d.Engine == nil {
		return errors.New("scan engine is required")
	}
	return nil
}

// Server is the ops API server.
type Server struct {
	deps Deps
	log  *slog.Logger
}

// New creates an API server.
func New(deps Deps, log *slog.Logger) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, errors.Join(ErrMissingDependency, err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{deps: deps, log: log.With("component", "api")}, nil
}

// Handler returns the router with every route registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.healthz)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/series", func(r chi.Router) {
			r.Get("/", s.listSeries)
			r.Get("/status", s.requireRef(s.seriesStatus))
			r.Get("/rename-preview", s.requireRef(s.renamePreview))
			r.Post("/rename", s.requireRef(s.renameSeries))
		})

		r.With(s.requireScheduler).Post("/scan", s.triggerScan)

		r.Route("/scheduler", func(r chi.Router) {
			r.Use(s.requireScheduler)
			r.Get("/", s.schedulerState)
			r.Post("/start", s.startScheduler)
			r.Post("/stop", s.stopScheduler)
		})

		r.Get("/events", s.listEvents)
	})
	return r
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Error response
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message, Code: errCode})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// queryInt extracts an optional integer from query string.
func queryInt(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}
