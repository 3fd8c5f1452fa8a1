package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// subscription is one subscriber channel and the events it wants.
type subscription struct {
	ch    chan Event
	match func(Event) bool
	done  bool // ch is closed; guarded by Bus.mu
}

// Bus fans events out to subscribers, persists them to the event log and
// keeps the latest status update of every series. It implements Notifier.
type Bus struct {
	mu      sync.RWMutex
	subs    []*subscription
	latest  map[string]*StatusUpdate // series ref -> newest status update
	log     *EventLog                // may be nil
	logger  *slog.Logger
	closed  bool
	dropped atomic.Uint64
}

// NewBus creates a bus. log may be nil to disable persistence.
func NewBus(log *EventLog, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		latest: make(map[string]*StatusUpdate),
		log:    log,
		logger: logger,
	}
}

// Publish persists e and delivers it to every matching subscriber without
// blocking. A subscriber whose buffer is full misses the event. Publishing
// on a closed bus is a no-op.
func (b *Bus) Publish(_ context.Context, e Event) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	if su, ok := e.(*StatusUpdate); ok && su.SeriesRef() != "" {
		b.latest[su.SeriesRef()] = su
	}
	targets := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.match(e) {
			targets = append(targets, s)
		}
	}
	b.mu.Unlock()

	if b.log != nil {
		if _, err := b.log.Append(e); err != nil {
			// Delivery still happens; the log is an audit trail.
			b.logger.Error("failed to persist event", "type", e.EventType(), "error", err)
		}
	}

	for _, s := range targets {
		b.deliver(s, e)
	}
	return nil
}

func (b *Bus) deliver(s *subscription, e Event) {
	// Unsubscribe and Close may have closed s.ch since Publish released the lock.
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed || s.done {
		return
	}
	select {
	case s.ch <- e:
	default:
		b.dropped.Add(1)
		b.logger.Warn("subscriber channel full, dropping event",
			"type", e.EventType(), "series", e.SeriesRef())
	}
}

func (b *Bus) subscribe(bufferSize int, match func(Event) bool) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, &subscription{ch: ch, match: match})
	return ch
}

// Subscribe returns a channel for events of one type.
func (b *Bus) Subscribe(eventType string, bufferSize int) <-chan Event {
	return b.subscribe(bufferSize, func(e Event) bool { return e.EventType() == eventType })
}

// SubscribeAll returns a channel for all events.
func (b *Bus) SubscribeAll(bufferSize int) <-chan Event {
	return b.subscribe(bufferSize, func(Event) bool { return true })
}

// SubscribeSeries returns a channel for the events of one series.
func (b *Bus) SubscribeSeries(ref string, bufferSize int) <-chan Event {
	return b.subscribe(bufferSize, func(e Event) bool { return e.SeriesRef() == ref })
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.ch == ch {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			s.done = true
			close(s.ch)
			return
		}
	}
}

// LastStatus returns the newest status update published for ref.
func (b *Bus) LastStatus(ref string) (*StatusUpdate, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	su, ok := b.latest[ref]
	return su, ok
}

// Dropped returns how many deliveries were skipped because a subscriber
// was not keeping up.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes every subscriber channel. It is idempotent.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for _, s := range b.subs {
		s.done = true
		close(s.ch)
	}
	b.subs = nil
	return nil
}

var _ Notifier = (*Bus)(nil)
