package events

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// EventLog persists events to SQLite for the ops API and post-mortems.
type EventLog struct {
	db *sql.DB
}

// NewEventLog creates an event log on db, which must carry the events table.
func NewEventLog(db *sql.DB) *EventLog {
	return &EventLog{db: db}
}

// Append persists an event and returns its ID.
func (l *EventLog) Append(e Event) (int64, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("marshal event: %w", err)
	}

	result, err := l.db.Exec(`
		INSERT INTO events (event_type, series_ref, run_id, payload, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.EventType(), e.SeriesRef(), e.ScanRun(), string(payload), formatTime(e.OccurredAt()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}

	return result.LastInsertId()
}

// RawEvent is a persisted event with its JSON payload undecoded.
type RawEvent struct {
	ID         int64     `json:"id"`
	EventType  string    `json:"type"`
	SeriesRef  string    `json:"series_ref,omitempty"`
	RunID      string    `json:"run_id,omitempty"`
	Payload    string    `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
}

const selectEvents = `SELECT id, event_type, series_ref, run_id, payload, occurred_at FROM events`

func (l *EventLog) query(what, clause string, args ...any) ([]RawEvent, error) {
	rows, err := l.db.Query(selectEvents+" "+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", what, err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Since returns the events at or after t, oldest first.
func (l *EventLog) Since(t time.Time) ([]RawEvent, error) {
	return l.query("events since", "WHERE occurred_at >= ? ORDER BY id ASC", formatTime(t))
}

// ForSeries returns every event of a series, oldest first.
func (l *EventLog) ForSeries(ref string) ([]RawEvent, error) {
	return l.query("series events", "WHERE series_ref = ? ORDER BY id ASC", ref)
}

// ForRun returns the events of one scan run, oldest first.
func (l *EventLog) ForRun(runID string) ([]RawEvent, error) {
	if runID == "" {
		return nil, nil
	}
	return l.query("run events", "WHERE run_id = ? ORDER BY id ASC", runID)
}

// Recent returns the newest events, newest first.
func (l *EventLog) Recent(limit int) ([]RawEvent, error) {
	return l.query("recent events", "ORDER BY id DESC LIMIT ?", limit)
}

// Prune removes events older than the given duration.
func (l *EventLog) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result, err := l.db.Exec(`DELETE FROM events WHERE occurred_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return result.RowsAffected()
}

func scanEvents(rows *sql.Rows) ([]RawEvent, error) {
	var events []RawEvent
	for rows.Next() {
		var (
			e          RawEvent
			occurredAt string
		)
		if err := rows.Scan(&e.ID, &e.EventType, &e.SeriesRef, &e.RunID, &e.Payload, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, occurredAt)
		if err != nil {
			return nil, fmt.Errorf("parse event time %q: %w", occurredAt, err)
		}
		e.OccurredAt = t
		events = append(events, e)
	}
	return events, rows.Err()
}
