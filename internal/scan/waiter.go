package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmunix/arrwatch/internal/torrent"
)

// DefaultPollInterval is how often the waiter asks the backend for status.
const DefaultPollInterval = 10 * time.Second

// StatusReader is the part of the download client the waiter polls.
type StatusReader interface {
	Status(ctx context.Context, hash string) (*torrent.Status, error)
}

// Waiter blocks until a torrent has finished downloading. It has no
// deadline of its own; callers bound it through ctx.
type Waiter struct {
	client   StatusReader
	interval time.Duration
	log      *slog.Logger
}

// NewWaiter creates a waiter polling every interval.
func NewWaiter(client StatusReader, interval time.Duration, log *slog.Logger) *Waiter {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Waiter{client: client, interval: interval, log: log.With("component", "waiter")}
}

// Wait returns nil once the torrent is complete, ErrTorrentGone if it is
// removed, or the backend or context error.
func (w *Waiter) Wait(ctx context.Context, hash string) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		st, err := w.client.Status(ctx, hash)
		switch {
		case errors.Is(err, torrent.ErrTorrentNotFound):
			return fmt.Errorf("%w: %s", ErrTorrentGone, hash)
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("status %s: %w", hash, err)
		case st.Completed:
			return nil
		}
		w.log.Debug("waiting for torrent", "hash", hash, "state", st.State, "progress", st.Progress)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
