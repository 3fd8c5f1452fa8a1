// Package events carries scan progress and notifications from the scan
// engine to subscribers and the persistent event log.
package events

import (
	"context"
	"time"
)

// Event is the base interface all events implement.
type Event interface {
	EventType() string
	SeriesRef() string // empty for events not tied to a series
	ScanRun() string   // empty outside a scan run
	OccurredAt() time.Time
}

// Notifier accepts events for delivery.
type Notifier interface {
	Publish(ctx context.Context, e Event) error
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	Type      string    `json:"type"`
	Ref       string    `json:"series_ref,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	Timestamp time.Time `json:"occurred_at"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) SeriesRef() string     { return e.Ref }
func (e BaseEvent) ScanRun() string       { return e.RunID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent creates a BaseEvent with the current timestamp.
func NewBaseEvent(eventType, seriesRef string) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		Ref:       seriesRef,
		Timestamp: time.Now(),
	}
}
