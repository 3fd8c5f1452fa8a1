package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// logRequests logs every request at debug level, and failures at warn.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := s.log.Debug
		if status >= http.StatusInternalServerError {
			level = s.log.Warn
		}
		level("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// requireScheduler returns 503 if no scheduler is configured.
func (s *Server) requireScheduler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Scheduler == nil {
			writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Scheduler not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireRef rejects requests without a ref query parameter.
func (s *Server) requireRef(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ref") == "" {
			writeError(w, http.StatusBadRequest, "MISSING_REF", "ref query parameter is required")
			return
		}
		next(w, r)
	}
}
