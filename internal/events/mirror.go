package events

import (
	"context"
	"log/slog"
	"time"
)

// Mirror writes every event published on bus to logger. It returns when ctx
// is done or the bus is closed.
func Mirror(ctx context.Context, bus *Bus, logger *slog.Logger) {
	ch := bus.SubscribeAll(256)
	defer bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			logEvent(ctx, logger, e)
		}
	}
}

func logEvent(ctx context.Context, logger *slog.Logger, e Event) {
	switch ev := e.(type) {
	case *Notification:
		logger.Log(ctx, severityLevel(ev.Severity), ev.Message,
			"series", ev.SeriesRef(), "severity", ev.Severity)
	case *StatusUpdate:
		level := slog.LevelDebug
		if ev.Phase == PhaseError {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "scan status",
			"series", ev.SeriesRef(), "run_id", ev.RunID, "phase", ev.Phase,
			"progress", ev.Progress, "total", ev.Total, "message", ev.Message)
	default:
		logger.Debug("event", "type", e.EventType(), "series", e.SeriesRef())
	}
}

func severityLevel(s Severity) slog.Level {
	switch s {
	case SeverityError:
		return slog.LevelError
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// RunPruner deletes events older than retention every interval until ctx is
// done. A zero retention keeps events forever.
func RunPruner(ctx context.Context, log *EventLog, retention, interval time.Duration, logger *slog.Logger) {
	if retention <= 0 || log == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if n, err := log.Prune(retention); err != nil {
			logger.Error("prune events failed", "error", err)
		} else if n > 0 {
			logger.Debug("pruned events", "count", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
