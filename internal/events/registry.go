package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType is returned by Decode for an event type it cannot build.
var ErrUnknownType = errors.New("unknown event type")

var decoders = map[string]func() Event{
	EventStatusUpdate: func() Event { return new(StatusUpdate) },
	EventNotification: func() Event { return new(Notification) },
}

// Decode rebuilds the concrete event behind a persisted row.
func Decode(raw RawEvent) (Event, error) {
	newEvent, ok := decoders[raw.EventType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, raw.EventType)
	}
	e := newEvent()
	if err := json.Unmarshal([]byte(raw.Payload), e); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", raw.EventType, err)
	}
	return e, nil
}
