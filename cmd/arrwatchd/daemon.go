package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/vmunix/arrwatch/internal/api"
	"github.com/vmunix/arrwatch/internal/config"
	"github.com/vmunix/arrwatch/internal/database"
	"github.com/vmunix/arrwatch/internal/events"
	"github.com/vmunix/arrwatch/internal/logging"
	"github.com/vmunix/arrwatch/internal/metrics"
	"github.com/vmunix/arrwatch/internal/registry"
	"github.com/vmunix/arrwatch/internal/scan"
	"github.com/vmunix/arrwatch/internal/scheduler"
	"github.com/vmunix/arrwatch/internal/source"
	"github.com/vmunix/arrwatch/internal/source/builtin"
	"github.com/vmunix/arrwatch/internal/torrent"
)

// ErrAlreadyRunning is returned when another daemon holds the lock.
var ErrAlreadyRunning = errors.New("another arrwatchd instance is running")

// lockName is created next to the database file.
const lockName = "arrwatchd.lock"

// connectTimeout bounds the startup check against qBittorrent.
const connectTimeout = 15 * time.Second

func runDaemon(configPath string, checkOnly bool) error {
	if configPath == "" {
		p, err := config.Discover()
		if err != nil {
			return err
		}
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if checkOnly {
		fmt.Printf("%s: ok\n", configPath)
		return nil
	}

	logger, logCloser, err := logging.New(logging.Options{
		Level: cfg.Server.LogLevel,
		File:  cfg.Server.LogFile,
	})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer func() { _ = logCloser.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := newDaemon(cfg, configPath, logger)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	return d.Run(ctx)
}

// daemon owns every long-lived component.
type daemon struct {
	cfg    *config.Config
	log    *slog.Logger
	lock   *flock.Flock
	db     *sql.DB
	bus    *events.Bus
	client *torrent.QBittorrentClient
	engine *scan.Engine
	sched  *scheduler.Scheduler
	runner *scheduler.Runner
}

// newDaemon acquires the instance lock and builds the component graph.
// Nothing talks to the network yet.
func newDaemon(cfg *config.Config, configPath string, logger *slog.Logger) (*daemon, error) {
	dataDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	lock, err := acquireLock(filepath.Join(dataDir, lockName))
	if err != nil {
		return nil, err
	}

	d := &daemon{cfg: cfg, log: logger, lock: lock}
	if err := d.build(configPath); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func acquireLock(path string) (*flock.Flock, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, path)
	}
	return lock, nil
}

func (d *daemon) build(configPath string) error {
	cfg := d.cfg

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	d.db = db

	// === Stores ===
	store := registry.NewStore(db)
	eventLog := events.NewEventLog(db)
	d.bus = events.NewBus(eventLog, d.log.With("component", "bus"))

	// === Clients ===
	d.client = torrent.NewQBittorrentClient(torrent.QBittorrentConfig{
		URL:           cfg.QBittorrent.URL,
		Username:      cfg.QBittorrent.Username,
		Password:      cfg.QBittorrent.Password,
		Timeout:       cfg.QBittorrent.Timeout,
		SettleTimeout: cfg.QBittorrent.SettleTimeout,
	}, d.log)

	fetcher := source.NewFetcher(source.FetcherConfig{
		UserAgent: cfg.Sources.UserAgent,
		Retries:   uint(max(cfg.Sources.Retries, 0)),
		Timeout:   cfg.Sources.Timeout,
		CacheSize: cfg.Sources.CacheSize,
		CacheTTL:  cfg.Sources.CacheTTL,
	}, d.log.With("component", "fetcher"))
	sources := builtin.NewResolver(fetcher, d.log)

	// === Services ===
	m := metrics.New()
	d.engine = scan.New(store, sources, d.client, d.bus, m, scan.Config{
		PollInterval:      cfg.Scan.PollInterval,
		CompletionTimeout: cfg.Scan.CompletionTimeout,
		Concurrency:       cfg.Scan.Concurrency,
	}, d.log)
	d.sched = scheduler.New(d.engine, cfg.Scan.Interval, d.log)

	srv, err := api.New(api.Deps{
		Series:    store,
		Engine:    d.engine,
		Scheduler: d.sched,
		EventLog:  eventLog,
		Progress:  d.bus,
		Metrics:   m.Handler(),
	}, d.log)
	if err != nil {
		return fmt.Errorf("api: %w", err)
	}

	d.runner = scheduler.NewRunner(d.sched, d.bus, eventLog, scheduler.RunnerConfig{
		Addr:       cfg.Server.Addr(),
		Handler:    srv.Handler(),
		ConfigPath: configPath,
		AutoStart:  cfg.Scan.AutoStart,
		Retention:  cfg.Events.Retention,
	}, d.log)
	return nil
}

// Run blocks until ctx is cancelled or a component fails.
func (d *daemon) Run(ctx context.Context) error {
	d.log.Info("arrwatchd starting",
		"version", version,
		"addr", d.cfg.Server.Addr(),
		"database", d.cfg.Database.Path,
		"qbittorrent", d.cfg.QBittorrent.URL,
		"interval", d.cfg.Scan.Interval,
		"auto_start", d.cfg.Scan.AutoStart,
	)

	// An unreachable backend is not fatal; each scan reports it.
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	if err := d.client.Connect(connectCtx); err != nil {
		d.log.Warn("qbittorrent not reachable at startup", "error", err)
	}
	cancel()

	err := d.runner.Run(ctx)
	d.log.Info("arrwatchd stopped")
	return err
}

// Close releases the database and the instance lock. It is safe to call on
// a partially built daemon.
func (d *daemon) Close() error {
	var errs []error
	if d.bus != nil {
		errs = append(errs, d.bus.Close())
	}
	if d.db != nil {
		errs = append(errs, d.db.Close())
	}
	if d.lock != nil {
		errs = append(errs, d.lock.Unlock())
	}
	return errors.Join(errs...)
}

var _ io.Closer = (*daemon)(nil)
