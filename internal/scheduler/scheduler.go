// Package scheduler triggers scan cycles on an interval and on demand.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vmunix/arrwatch/internal/scan"
)

var (
	ErrAlreadyRunning = errors.New("scheduler already running")
	ErrNotRunning     = errors.New("scheduler not running")
	ErrClosed         = errors.New("scheduler closed")
)

// Scanner is the scan engine as seen by the scheduler.
type Scanner interface {
	ScanAll(ctx context.Context) error
	ScanOne(ctx context.Context, ref string) (*scan.Result, error)
}

// Scheduler owns the interval trigger. Scans started by it, by the
// interval or manually, run under the scheduler's own context and are
// cancelled by Close.
type Scheduler struct {
	scanner Scanner
	log     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	interval time.Duration
	stop     context.CancelFunc // nil while the interval trigger is off
	loopDone chan struct{}
	reset    chan time.Duration
	closed   bool

	cycling atomic.Bool
}

// New creates a stopped scheduler.
func New(scanner Scanner, interval time.Duration, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scanner:  scanner,
		log:      log.With("component", "scheduler"),
		ctx:      ctx,
		cancel:   cancel,
		interval: interval,
		reset:    make(chan time.Duration, 1),
	}
}

// Start runs a cycle immediately and then one every interval, until ctx is
// done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.stop != nil {
		return ErrAlreadyRunning
	}

	loopCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	s.stop = stop
	s.loopDone = done
	interval := s.interval

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(loopCtx, interval)
		close(done)

		// The parent context ended without Stop being called.
		s.mu.Lock()
		if s.loopDone == done {
			s.stop = nil
			s.loopDone = nil
		}
		s.mu.Unlock()
		stop()
	}()
	s.log.Info("scheduler started", "interval", interval)
	return nil
}

// Stop turns the interval trigger off. A cycle already running finishes.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	stop, done := s.stop, s.loopDone
	s.stop = nil
	s.loopDone = nil
	s.mu.Unlock()

	if stop == nil {
		return ErrNotRunning
	}
	stop()
	<-done
	s.log.Info("scheduler stopped")
	return nil
}

// Running reports whether the interval trigger is on.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Cycling reports whether a ScanAll cycle is in progress.
func (s *Scheduler) Cycling() bool {
	return s.cycling.Load()
}

// Interval returns the current interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Reconfigure changes the interval. A running trigger picks it up at once.
func (s *Scheduler) Reconfigure(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.mu.Lock()
	if s.interval == interval {
		s.mu.Unlock()
		return
	}
	s.interval = interval
	running := s.stop != nil
	s.mu.Unlock()

	s.log.Info("scan interval changed", "interval", interval)
	if !running {
		return
	}
	// Keep only the newest value.
	select {
	case <-s.reset:
	default:
	}
	s.reset <- interval
}

// TriggerAll starts a cycle in the background. It returns false when a
// cycle is already running.
func (s *Scheduler) TriggerAll() bool {
	return s.startCycle("manual")
}

// TriggerOne scans ref in the background.
func (s *Scheduler) TriggerOne(ref string) {
	if !s.track() {
		return
	}
	go func() {
		defer s.wg.Done()
		res, err := s.scanner.ScanOne(s.ctx, ref)
		switch {
		case errors.Is(err, scan.ErrScanInProgress):
			s.log.Info("manual scan skipped, already running", "ref", ref)
		case err != nil:
			s.log.Warn("manual scan failed", "ref", ref, "error", err)
		default:
			s.log.Info("manual scan finished", "ref", ref, "summary", res.Summary())
		}
	}()
}

// Close stops the trigger, cancels running scans and waits for them.
func (s *Scheduler) Close() {
	_ = s.Stop()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

// track registers a background goroutine unless the scheduler is closed.
func (s *Scheduler) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration) {
	s.startCycle("start")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-s.reset:
			ticker.Reset(d)
		case <-ticker.C:
			s.startCycle("interval")
		}
	}
}

func (s *Scheduler) startCycle(trigger string) bool {
	if !s.cycling.CompareAndSwap(false, true) {
		s.log.Info("scan cycle still running, skipping", "trigger", trigger)
		return false
	}
	if !s.track() {
		s.cycling.Store(false)
		return false
	}
	go func() {
		defer s.wg.Done()
		defer s.cycling.Store(false)
		start := time.Now()
		if err := s.scanner.ScanAll(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("scan cycle failed", "trigger", trigger, "error", err)
			return
		}
		s.log.Debug("scan cycle done", "trigger", trigger, "duration", time.Since(start))
	}()
	return true
}
