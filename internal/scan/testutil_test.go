package scan

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vmunix/arrwatch/internal/database"
	"github.com/vmunix/arrwatch/internal/events"
	"github.com/vmunix/arrwatch/internal/registry"
	"github.com/vmunix/arrwatch/internal/source"
	"github.com/vmunix/arrwatch/internal/tag"
	"github.com/vmunix/arrwatch/internal/torrent"
)

const testRef = "https://astar.bz/torrents/show.html"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestRegistry(t *testing.T) *registry.Store {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return registry.NewStore(db)
}

func addSeries(t *testing.T, reg *registry.Store, ref string, rename bool) {
	t.Helper()
	require.NoError(t, reg.Add(context.Background(), &registry.Series{
		Ref:           ref,
		SavePath:      "/media/show",
		DisplayName:   "Show",
		Season:        "S01",
		RenameEnabled: rename,
	}))
}

func testEngine(reg Registry, sources Sources, client torrent.Client, n events.Notifier) *Engine {
	return New(reg, sources, client, n, nil, Config{PollInterval: time.Millisecond, Concurrency: 2}, discardLogger())
}

func sourcesFor(ref string, src source.Source) *source.Resolver {
	r := source.NewResolver()
	host := ref[strings.Index(ref, "//")+2:]
	host = host[:strings.Index(host, "/")]
	r.Register(host, src)
	return r
}

func episode(i int, name string) source.Episode {
	return source.Episode{
		Name:    name,
		Locator: "https://astar.bz/gettorrent.php?id=" + tag.Index(i),
		Token:   tag.Index(i),
	}
}

// fakeClient is an in-memory download backend. Added torrents appear
// immediately; their completion and files are configurable per tag.
type fakeClient struct {
	mu       sync.Mutex
	torrents []torrent.Torrent
	files    map[string][]string

	// filesByTag seeds the files of torrents added with that tag.
	filesByTag map[string][]string
	// incomplete tags are added with progress 0.
	incomplete map[string]bool
	// completeAfter completes a torrent after that many Status calls.
	completeAfter map[string]int
	addErr        map[string]error
	down          bool

	adds        []string
	payloads    []torrent.Payload
	statusCalls map[string]int
	calls       []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		files:         map[string][]string{},
		filesByTag:    map[string][]string{},
		incomplete:    map[string]bool{},
		completeAfter: map[string]int{},
		addErr:        map[string]error{},
		statusCalls:   map[string]int{},
	}
}

func (f *fakeClient) seed(t torrent.Torrent, files ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.torrents = append(f.torrents, t)
	f.files[t.Hash] = files
}

func (f *fakeClient) setDown(down bool) {
	f.mu.Lock()
	f.down = down
	f.mu.Unlock()
}

func (f *fakeClient) AddTorrent(_ context.Context, payload torrent.Payload, savePath, tg string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return "", torrent.ErrBackendUnavailable
	}
	f.calls = append(f.calls, "add "+tg)
	if err := f.addErr[tg]; err != nil {
		return "", err
	}
	f.adds = append(f.adds, tg)
	f.payloads = append(f.payloads, payload)
	hash := "hash-" + tg
	progress := 1.0
	state := torrent.StateSeeding
	if f.incomplete[tg] || f.completeAfter[tg] > 0 {
		progress, state = 0, torrent.StateDownloading
	}
	f.torrents = append(f.torrents, torrent.Torrent{
		Hash: hash, Name: tg, Tags: []string{tg}, SavePath: savePath, Progress: progress, State: state,
	})
	f.files[hash] = append([]string(nil), f.filesByTag[tg]...)
	return hash, nil
}

func (f *fakeClient) ListTorrents(context.Context) ([]torrent.Torrent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, torrent.ErrBackendUnavailable
	}
	return append([]torrent.Torrent(nil), f.torrents...), nil
}

func (f *fakeClient) ListFiles(_ context.Context, hash string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, torrent.ErrBackendUnavailable
	}
	return append([]string(nil), f.files[hash]...), nil
}

func (f *fakeClient) RenameFile(_ context.Context, hash, oldName, newName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return torrent.ErrBackendUnavailable
	}
	f.calls = append(f.calls, "rename "+hash+" "+oldName+" -> "+newName)
	for i, name := range f.files[hash] {
		if name == oldName {
			f.files[hash][i] = newName
		}
	}
	return nil
}

func (f *fakeClient) DeleteTorrent(_ context.Context, hash string, purge bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return torrent.ErrBackendUnavailable
	}
	if purge {
		f.calls = append(f.calls, "delete "+hash+" purge")
	} else {
		f.calls = append(f.calls, "delete "+hash)
	}
	kept := f.torrents[:0]
	for _, t := range f.torrents {
		if t.Hash != hash {
			kept = append(kept, t)
		}
	}
	f.torrents = kept
	delete(f.files, hash)
	return nil
}

func (f *fakeClient) Status(_ context.Context, hash string) (*torrent.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, torrent.ErrBackendUnavailable
	}
	f.statusCalls[hash]++
	for i := range f.torrents {
		t := &f.torrents[i]
		if t.Hash != hash {
			continue
		}
		if n, ok := f.completeAfter[t.Name]; ok && f.statusCalls[hash] >= n {
			t.Progress, t.State = 1, torrent.StateSeeding
		}
		return &torrent.Status{Hash: hash, State: t.State, Progress: t.Progress, Completed: t.Completed()}, nil
	}
	return nil, torrent.ErrTorrentNotFound
}

func (f *fakeClient) Version(context.Context) (string, error) {
	return "2.9.3", nil
}

func (f *fakeClient) addedTags() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.adds...)
}

func (f *fakeClient) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeClient) filesOf(hash string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.files[hash]...)
}

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) statuses() []*events.StatusUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*events.StatusUpdate
	for _, e := range r.events {
		if su, ok := e.(*events.StatusUpdate); ok {
			out = append(out, su)
		}
	}
	return out
}

func (r *recorder) notifications() []*events.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*events.Notification
	for _, e := range r.events {
		if n, ok := e.(*events.Notification); ok {
			out = append(out, n)
		}
	}
	return out
}

func (r *recorder) last() *events.StatusUpdate {
	s := r.statuses()
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}
