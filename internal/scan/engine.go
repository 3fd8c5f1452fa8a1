// Package scan reconciles watched series with the download backend.
//
// A scan reads the episodes a source currently lists for a series, compares
// them with the torrents the backend holds by opaque tag, and adds or renames
// whatever is missing or stale. Scans are idempotent: running one twice in a
// row performs no backend writes the second time.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vmunix/arrwatch/internal/events"
	"github.com/vmunix/arrwatch/internal/metrics"
	"github.com/vmunix/arrwatch/internal/registry"
	"github.com/vmunix/arrwatch/internal/rename"
	"github.com/vmunix/arrwatch/internal/source"
	"github.com/vmunix/arrwatch/internal/tag"
	"github.com/vmunix/arrwatch/internal/torrent"
)

//go:generate mockgen -destination=mocks/source.go -package=mocks github.com/vmunix/arrwatch/internal/source Source
//go:generate mockgen -destination=mocks/torrent.go -package=mocks github.com/vmunix/arrwatch/internal/torrent Client

// Defaults for Config.
const (
	DefaultCompletionTimeout = 12 * time.Hour
	DefaultConcurrency       = 2
)

// Registry is the part of the series registry the engine uses.
type Registry interface {
	Get(ctx context.Context, ref string) (*registry.Series, error)
	List(ctx context.Context) ([]*registry.Series, error)
	RecordEpisode(ctx context.Context, ref, tag string, marker time.Time) error
	SetLastScan(ctx context.Context, t time.Time) error
}

// Sources maps a series reference to the source that can read it.
type Sources interface {
	Resolve(ref string) (source.Source, error)
}

// Config tunes the engine.
type Config struct {
	// PollInterval is how often completion is polled.
	PollInterval time.Duration
	// CompletionTimeout bounds each wait for a download to finish.
	// Zero disables the bound.
	CompletionTimeout time.Duration
	// Concurrency is how many series ScanAll scans at once.
	Concurrency int
}

// Engine runs series scans.
type Engine struct {
	registry Registry
	sources  Sources
	client   torrent.Client
	renamer  *rename.Resolver
	waiter   *Waiter
	notifier events.Notifier
	metrics  *metrics.Metrics
	cfg      Config
	log      *slog.Logger

	mu      sync.Mutex
	running map[string]struct{}
}

// New creates an engine. m may be nil.
func New(reg Registry, sources Sources, client torrent.Client, notifier events.Notifier, m *metrics.Metrics, cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Engine{
		registry: reg,
		sources:  sources,
		client:   client,
		renamer:  rename.NewResolver(client, log),
		waiter:   NewWaiter(client, cfg.PollInterval, log),
		notifier: notifier,
		metrics:  m,
		cfg:      cfg,
		log:      log.With("component", "scan"),
		running:  make(map[string]struct{}),
	}
}

func (e *Engine) acquire(ref string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.running[ref]; busy {
		return false
	}
	e.running[ref] = struct{}{}
	return true
}

func (e *Engine) release(ref string) {
	e.mu.Lock()
	delete(e.running, ref)
	e.mu.Unlock()
}

// Scanning reports whether a scan of ref is in flight.
func (e *Engine) Scanning(ref string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, busy := e.running[ref]
	return busy
}

// ScanAll scans every registered series, a bounded number at a time. A
// failing series never affects the others; per-series errors are reported
// through events and the log, not returned.
func (e *Engine) ScanAll(ctx context.Context) error {
	all, err := e.registry.List(ctx)
	if err != nil {
		return fmt.Errorf("list series: %w", err)
	}
	e.log.Info("scan cycle started", "series", len(all))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for _, s := range all {
		ref := s.Ref
		g.Go(func() error {
			if _, err := e.ScanOne(gctx, ref); err != nil && !errors.Is(err, ErrScanInProgress) {
				e.log.Warn("series scan failed", "ref", ref, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now()
	if err := e.registry.SetLastScan(ctx, now); err != nil {
		return fmt.Errorf("record last scan: %w", err)
	}
	e.metrics.CycleFinished(now)
	e.log.Info("scan cycle finished", "series", len(all))
	return nil
}

// ScanOne scans a single series. The returned error is the per-series
// failure, if any; per-episode failures are in Result.Failures.
func (e *Engine) ScanOne(ctx context.Context, ref string) (*Result, error) {
	if !e.acquire(ref) {
		e.log.Warn("scan already running", "ref", ref)
		e.notify(ctx, "", ref, events.SeverityWarning, "Scan already in progress")
		e.metrics.ScanFinished(metrics.OutcomeInProgress, 0)
		return nil, ErrScanInProgress
	}
	defer e.release(ref)

	r := &run{
		e:   e,
		log: e.log.With("ref", ref),
		res: &Result{Ref: ref, RunID: uuid.NewString(), Started: time.Now()},
	}
	r.log = r.log.With("run_id", r.res.RunID)

	err := r.scan(ctx)

	r.res.Finished = time.Now()
	outcome := metrics.OutcomeOK
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case r.res.Failed():
		outcome = metrics.OutcomePartial
	}
	e.metrics.ScanFinished(outcome, r.res.Finished.Sub(r.res.Started))
	return r.res, err
}

// run is the state of one ScanOne call.
type run struct {
	e      *Engine
	log    *slog.Logger
	res    *Result
	series *registry.Series
	src    source.Source

	progress int
	total    int
}

func (r *run) scan(ctx context.Context) error {
	e := r.e
	ref := r.res.Ref

	series, err := e.registry.Get(ctx, ref)
	if err != nil {
		return r.abort(ctx, "Series not found", err)
	}
	r.series = series

	r.status(ctx, events.PhaseScanning, "")

	src, err := e.sources.Resolve(ref)
	if err != nil {
		return r.abort(ctx, "No source for series", err)
	}
	r.src = src

	episodes, err := src.Episodes(ctx, ref, series.Quality)
	if err != nil {
		return r.abort(ctx, "Cannot read series page", err)
	}
	r.res.Episodes = len(episodes)
	if len(episodes) == 0 {
		r.log.Info("no episodes listed")
		r.status(ctx, events.PhaseDone, "No episodes")
		return nil
	}

	torrents, err := e.client.ListTorrents(ctx)
	if err != nil {
		return r.abort(ctx, "Download client unavailable", err)
	}

	r.total = 2 * len(episodes)
	seen := make(map[string]bool, len(episodes))
	var backendErr error

	for _, ep := range episodes {
		ep.Tag = tag.Derive(ref, ep.Token)

		if backendErr != nil || ctx.Err() != nil {
			r.res.Skipped++
			r.progress += 2
			continue
		}
		if seen[ep.Tag] {
			r.progress += 2
			continue
		}
		seen[ep.Tag] = true

		var err error
		match, found := torrent.FindByTag(torrents, ep.Tag)
		action := r.decide(ep, match, found)
		switch action {
		case ActionDownload:
			err = r.download(ctx, ep)
		case ActionRename:
			err = r.refresh(ctx, ep, match)
		default:
			r.res.Unchanged++
			r.progress += 2
		}
		e.metrics.Episode(string(action))

		if errors.Is(err, torrent.ErrBackendUnavailable) {
			backendErr = err
		}
	}

	if backendErr != nil {
		return r.abort(ctx, "Download client unavailable", backendErr)
	}
	if err := ctx.Err(); err != nil {
		return r.abort(ctx, "Scan cancelled", err)
	}

	r.progress = r.total
	r.status(ctx, events.PhaseDone, r.res.Summary())
	switch {
	case r.res.Failed():
		r.notify(ctx, events.SeverityWarning, fmt.Sprintf("%s: %s", series.DisplayName, r.res.Summary()))
	case r.res.Added > 0 || r.res.Renamed > 0:
		r.notify(ctx, events.SeveritySuccess, fmt.Sprintf("%s: %s", series.DisplayName, r.res.Summary()))
	}
	r.log.Info("scan finished",
		"episodes", r.res.Episodes,
		"added", r.res.Added,
		"renamed", r.res.Renamed,
		"failed", len(r.res.Failures))
	return nil
}

// decide picks the action for an episode given the torrent carrying its tag.
func (r *run) decide(ep source.Episode, match torrent.Torrent, found bool) Action {
	if !found {
		return ActionDownload
	}
	if !r.series.RenameEnabled || !match.Completed() || ep.UpdatedAt.IsZero() {
		return ActionNone
	}
	if marker, ok := r.series.Marker(ep.Tag); ok && !ep.UpdatedAt.After(marker) {
		return ActionNone
	}
	return ActionRename
}

func (r *run) download(ctx context.Context, ep source.Episode) error {
	log := r.log.With("episode", ep.Name, "tag", ep.Tag)

	r.progress++
	r.status(ctx, events.PhaseAdding, "Adding: "+ep.Name)

	var payload torrent.Payload
	if ep.Magnet != "" {
		payload = torrent.MagnetPayload(ep.Magnet)
	} else {
		data, err := r.src.FetchPayload(ctx, ep.Locator)
		if err != nil {
			log.Error("payload fetch failed", "locator", ep.Locator, "error", err)
			r.failed(ctx, ep, StageFetch, err)
			return nil
		}
		payload = torrent.FilePayload(data)
	}

	hash, err := r.e.client.AddTorrent(ctx, payload, r.series.SavePath, ep.Tag)
	confirmed := true
	if errors.Is(err, torrent.ErrAddUnconfirmed) {
		// The backend accepted the request; a later scan finds it by tag.
		log.Warn("torrent added but not listed yet", "error", err)
		r.notify(ctx, events.SeverityWarning, fmt.Sprintf("Added but not listed yet: %s", ep.Name))
		confirmed = false
		err = nil
	}
	if err != nil {
		log.Error("add failed", "error", err)
		r.failed(ctx, ep, StageAdd, err)
		return err
	}
	log.Info("torrent added", "hash", hash)
	r.record(ctx, ep)
	r.res.Added++

	if !confirmed || !r.series.RenameEnabled {
		r.progress++
		r.status(ctx, events.PhaseAdded, "Added: "+ep.Name)
		r.notify(ctx, events.SeverityInfo, "Added: "+ep.Name)
		return nil
	}

	r.notify(ctx, events.SeverityInfo, "Added: "+ep.Name)
	_, err = r.renameWhenComplete(ctx, ep, hash)
	return err
}

// refresh renames the files of an already acquired torrent whose release was
// updated on the source.
func (r *run) refresh(ctx context.Context, ep source.Episode, match torrent.Torrent) error {
	r.progress++
	r.status(ctx, events.PhaseRenaming, "Renaming: "+ep.Name)
	done, err := r.renameWhenComplete(ctx, ep, match.Hash)
	if done {
		r.record(ctx, ep)
	}
	return err
}

// renameWhenComplete waits for hash to finish and renames its files. It
// emits the episode's second progress unit and reports whether every file
// was handled. Only backend and context errors are returned.
func (r *run) renameWhenComplete(ctx context.Context, ep source.Episode, hash string) (bool, error) {
	if err := r.wait(ctx, hash); err != nil {
		r.log.Warn("torrent did not complete", "episode", ep.Name, "hash", hash, "error", err)
		r.failed(ctx, ep, StageWait, err)
		if errors.Is(err, torrent.ErrBackendUnavailable) || ctx.Err() != nil {
			return false, err
		}
		return false, nil
	}

	decisions, err := r.e.renamer.RenameTorrent(ctx, hash, r.series.SavePath, r.series.DisplayName, r.series.Season)
	for _, d := range decisions {
		if d.Changed {
			r.notify(ctx, events.SeverityInfo, fmt.Sprintf("Renamed: %s -> %s", path.Base(d.Old), path.Base(d.New)))
		}
	}
	if err != nil {
		r.log.Error("rename failed", "episode", ep.Name, "hash", hash, "error", err)
		r.failed(ctx, ep, StageRename, err)
		if errors.Is(err, torrent.ErrBackendUnavailable) {
			return false, err
		}
		return false, nil
	}

	r.res.Renamed++
	r.progress++
	r.status(ctx, events.PhaseRenamed, "Renamed: "+ep.Name)
	return true, nil
}

func (r *run) wait(ctx context.Context, hash string) error {
	if r.e.cfg.CompletionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.e.cfg.CompletionTimeout)
		defer cancel()
	}
	return r.e.waiter.Wait(ctx, hash)
}

// record persists the tag and marker. Failures are reported but do not undo
// the add: the tag in the backend is the source of truth for later scans.
func (r *run) record(ctx context.Context, ep source.Episode) {
	if err := r.e.registry.RecordEpisode(ctx, r.series.Ref, ep.Tag, ep.UpdatedAt); err != nil {
		r.log.Error("record episode failed", "tag", ep.Tag, "error", err)
		r.res.fail(ep, StageRecord, err)
		r.e.metrics.Failure(string(StageRecord))
	}
}

// failed records an episode failure and completes its progress units.
func (r *run) failed(ctx context.Context, ep source.Episode, stage Stage, err error) {
	fe := r.res.fail(ep, stage, err)
	r.e.metrics.Failure(string(stage))
	r.progress++
	r.status(ctx, events.PhaseSkipped, fe.Error())
	r.notify(ctx, events.SeverityError, fmt.Sprintf("%s: %s", ep.Name, err))
}

// abort ends the scan with a per-series error.
func (r *run) abort(ctx context.Context, msg string, err error) error {
	r.log.Error("scan failed", "reason", msg, "error", err)
	r.status(context.WithoutCancel(ctx), events.PhaseError, fmt.Sprintf("%s: %v", msg, err))
	r.notify(context.WithoutCancel(ctx), events.SeverityError, fmt.Sprintf("%s: %v", msg, err))
	return err
}

func (r *run) status(ctx context.Context, phase events.Phase, msg string) {
	ev := events.NewStatusUpdate(r.res.Ref, phase, r.progress, r.total, msg)
	ev.RunID = r.res.RunID
	r.e.publish(ctx, ev)
}

func (r *run) notify(ctx context.Context, sev events.Severity, msg string) {
	r.e.notify(ctx, r.res.RunID, r.res.Ref, sev, msg)
}

func (e *Engine) notify(ctx context.Context, runID, ref string, sev events.Severity, msg string) {
	ev := events.NewNotification(ref, sev, msg)
	ev.RunID = runID
	e.publish(ctx, ev)
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Publish(ctx, ev); err != nil {
		e.log.Warn("publish event failed", "type", ev.EventType(), "error", err)
	}
}

// Status lists the source's current episodes and whether each is already
// held by the backend. Nothing is written.
func (e *Engine) Status(ctx context.Context, ref string) (*SeriesStatus, error) {
	series, err := e.registry.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	src, err := e.sources.Resolve(ref)
	if err != nil {
		return nil, err
	}
	episodes, err := src.Episodes(ctx, ref, series.Quality)
	if err != nil {
		return nil, err
	}
	torrents, err := e.client.ListTorrents(ctx)
	if err != nil {
		return nil, err
	}

	st := &SeriesStatus{Ref: ref, Name: series.DisplayName, Episodes: make([]EpisodeStatus, 0, len(episodes))}
	for _, ep := range episodes {
		es := EpisodeStatus{
			Name:      ep.Name,
			Tag:       tag.Derive(ref, ep.Token),
			Quality:   ep.Quality,
			UpdatedAt: ep.UpdatedAt,
		}
		if t, ok := torrent.FindByTag(torrents, es.Tag); ok {
			es.Acquired = true
			es.Hash = t.Hash
			es.Progress = t.Progress
			es.Completed = t.Completed()
			st.Acquired++
		} else {
			st.New++
		}
		st.Episodes = append(st.Episodes, es)
	}
	return st, nil
}

// PreviewRename computes the new name of every file of every torrent in the
// series' save path. Nothing is renamed.
func (e *Engine) PreviewRename(ctx context.Context, ref string) ([]rename.Decision, error) {
	series, err := e.registry.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	torrents, err := e.client.ListTorrents(ctx)
	if err != nil {
		return nil, err
	}

	want := rename.CleanPath(series.SavePath)
	var out []rename.Decision
	for _, t := range torrents {
		if rename.CleanPath(t.SavePath) != want {
			continue
		}
		decisions, err := e.renamer.Preview(ctx, t.Hash, series.DisplayName, series.Season)
		if err != nil {
			return nil, err
		}
		out = append(out, decisions...)
	}
	return out, nil
}

// RenameSeries renames the files of every completed torrent tagged for the
// series, for use after its display name or season changed. Per-torrent
// failures are joined in the returned error.
func (e *Engine) RenameSeries(ctx context.Context, ref string) error {
	if !e.acquire(ref) {
		return ErrScanInProgress
	}
	defer e.release(ref)

	series, err := e.registry.Get(ctx, ref)
	if err != nil {
		return err
	}
	torrents, err := e.client.ListTorrents(ctx)
	if err != nil {
		return err
	}

	log := e.log.With("ref", ref)
	var errs []error
	renamed := 0
	for _, t := range torrents {
		if !t.Completed() || !tracked(series, t) {
			continue
		}
		decisions, err := e.renamer.RenameTorrent(ctx, t.Hash, series.SavePath, series.DisplayName, series.Season)
		for _, d := range decisions {
			if d.Changed {
				renamed++
			}
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Hash, err))
			if errors.Is(err, torrent.ErrBackendUnavailable) {
				break
			}
		}
	}
	log.Info("series renamed", "files", renamed, "errors", len(errs))

	sev := events.SeveritySuccess
	msg := fmt.Sprintf("%s: %d files renamed", series.DisplayName, renamed)
	if len(errs) > 0 {
		sev = events.SeverityWarning
		msg += fmt.Sprintf(", %d torrents failed", len(errs))
	}
	e.notify(ctx, "", ref, sev, msg)
	return errors.Join(errs...)
}

// tracked reports whether t carries a derived tag recorded for s. Tags set
// by other tools are ignored.
func tracked(s *registry.Series, t torrent.Torrent) bool {
	for _, tg := range t.Tags {
		if tag.Valid(tg) && s.Tracks(tg) {
			return true
		}
	}
	return false
}
