package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/arrwatch/internal/config"
	"github.com/vmunix/arrwatch/internal/events"
)

// RunnerConfig for the daemon components.
type RunnerConfig struct {
	// Addr and Handler describe the ops HTTP server. A nil Handler disables it.
	Addr    string
	Handler http.Handler
	// ConfigPath is watched for interval changes when set.
	ConfigPath string
	AutoStart  bool
	// Retention of persisted events; zero keeps them forever.
	Retention     time.Duration
	PruneInterval time.Duration
}

// Runner manages the daemon's long-lived components.
type Runner struct {
	sched    *Scheduler
	bus      *events.Bus
	eventLog *events.EventLog
	config   RunnerConfig
	logger   *slog.Logger
}

// NewRunner creates a new runner. eventLog may be nil.
func NewRunner(sched *Scheduler, bus *events.Bus, eventLog *events.EventLog, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = time.Hour
	}
	return &Runner{
		sched:    sched,
		bus:      bus,
		eventLog: eventLog,
		config:   cfg,
		logger:   logger,
	}
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails. In-flight scans are cancelled and awaited before it returns.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		events.Mirror(ctx, r.bus, r.logger.With("component", "events"))
		return nil
	})

	if r.eventLog != nil && r.config.Retention > 0 {
		g.Go(func() error {
			events.RunPruner(ctx, r.eventLog, r.config.Retention, r.config.PruneInterval, r.logger.With("component", "pruner"))
			return nil
		})
	}

	if r.config.Handler != nil {
		srv := &http.Server{
			Addr:              r.config.Addr,
			Handler:           r.config.Handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			r.logger.Info("http server listening", "addr", r.config.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if r.config.ConfigPath != "" {
		g.Go(func() error {
			err := WatchConfig(ctx, r.config.ConfigPath, func(cfg *config.Config) {
				r.sched.Reconfigure(cfg.Scan.Interval)
			}, r.logger.With("component", "config"))
			if err != nil {
				// The daemon keeps its startup interval.
				r.logger.Warn("config watch disabled", "error", err)
			}
			return nil
		})
	}

	if r.config.AutoStart {
		if err := r.sched.Start(ctx); err != nil {
			r.logger.Warn("scheduler auto start failed", "error", err)
		}
	}

	g.Go(func() error {
		<-ctx.Done()
		r.sched.Close()
		return nil
	})

	return g.Wait()
}
