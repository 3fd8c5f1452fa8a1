package api

import (
	"net/http"
	"time"

	"github.com/vmunix/arrwatch/internal/events"
)

const maxEventLimit = 1000

// listEvents returns persisted events. ?since= takes an RFC 3339 time or a
// duration relative to now; ?ref= narrows to one series and ?run= to one scan
// run. Without any of them the newest ?limit= events are returned.
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	if s.deps.EventLog == nil {
		writeError(w, http.StatusServiceUnavailable, "NO_EVENT_LOG", "Event log not configured")
		return
	}

	limit := queryInt(r, "limit", 50)
	if limit < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PAGINATION", "limit must be non-negative")
		return
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	var (
		items []events.RawEvent
		err   error
	)
	q := r.URL.Query()
	switch {
	case q.Get("run") != "":
		items, err = s.deps.EventLog.ForRun(q.Get("run"))
	case q.Get("since") != "":
		since, perr := parseSince(q.Get("since"), time.Now())
		if perr != nil {
			writeError(w, http.StatusBadRequest, "INVALID_SINCE", "since must be an RFC 3339 time or a duration")
			return
		}
		items, err = s.deps.EventLog.Since(since)
	case q.Get("ref") != "":
		items, err = s.deps.EventLog.ForSeries(q.Get("ref"))
	default:
		items, err = s.deps.EventLog.Recent(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "EVENT_ERROR", err.Error())
		return
	}

	if ref := q.Get("ref"); ref != "" && q.Get("since") != "" {
		items = filterSeries(items, ref)
	}
	if items == nil {
		items = []events.RawEvent{}
	}
	writeJSON(w, http.StatusOK, ListEventsResponse{Items: items, Total: len(items)})
}

func parseSince(v string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return time.Time{}, err
	}
	if d < 0 {
		d = -d
	}
	return now.Add(-d), nil
}

func filterSeries(items []events.RawEvent, ref string) []events.RawEvent {
	out := items[:0]
	for _, e := range items {
		if e.SeriesRef == ref {
			out = append(out, e)
		}
	}
	return out
}
