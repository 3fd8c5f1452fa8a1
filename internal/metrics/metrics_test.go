package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ScanFinished(OutcomeOK, 2*time.Second)
	m.ScanFinished(OutcomeOK, time.Second)
	m.ScanFinished(OutcomeError, time.Second)
	m.Episode("download")
	m.Failure("fetch")
	m.Failure("fetch")

	body := scrape(t, m)
	assert.Contains(t, body, `arrwatch_scan_runs_total{outcome="ok"} 2`)
	assert.Contains(t, body, `arrwatch_scan_runs_total{outcome="error"} 1`)
	assert.Contains(t, body, `arrwatch_scan_episodes_total{action="download"} 1`)
	assert.Contains(t, body, `arrwatch_scan_failures_total{stage="fetch"} 2`)
	assert.Contains(t, body, "arrwatch_scan_duration_seconds_count 3")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ScanFinished(OutcomeOK, time.Second)
		m.Episode("download")
		m.Failure("add")
		m.CycleFinished(time.Now())
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Episode("rename")
	m.CycleFinished(time.Unix(1700000000, 0))

	body := scrape(t, m)
	assert.Contains(t, body, `arrwatch_scan_episodes_total{action="rename"} 1`)
	assert.Contains(t, body, "arrwatch_scan_last_cycle_timestamp_seconds 1.7e+09")
	assert.Contains(t, body, "go_goroutines")
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
