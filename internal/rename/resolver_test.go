package rename

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/arrwatch/internal/torrent"
)

// fakeBackend is an in-memory backend whose deletes and renames take effect.
type fakeBackend struct {
	mu        sync.Mutex
	torrents  []torrent.Torrent
	files     map[string][]string
	deleted   []string
	deleteErr map[string]error
	renameErr map[string]error
	listErr   error
	calls     []string
}

func (f *fakeBackend) ListTorrents(context.Context) ([]torrent.Torrent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]torrent.Torrent(nil), f.torrents...), nil
}

func (f *fakeBackend) ListFiles(_ context.Context, hash string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.files[hash]...), nil
}

func (f *fakeBackend) RenameFile(_ context.Context, hash, oldName, newName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "rename "+hash+" "+oldName)
	if err := f.renameErr[oldName]; err != nil {
		return err
	}
	for i, name := range f.files[hash] {
		if name == oldName {
			f.files[hash][i] = newName
		}
	}
	return nil
}

func (f *fakeBackend) DeleteTorrent(_ context.Context, hash string, purge bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("delete %s purge=%v", hash, purge))
	if err := f.deleteErr[hash]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, hash)
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

func newTestResolver(b Backend) *Resolver {
	return NewResolver(b, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestResolver_RenameTorrent(t *testing.T) {
	b := &fakeBackend{
		torrents: []torrent.Torrent{{Hash: "aaa", SavePath: "/media/show"}},
		files: map[string][]string{
			"aaa": {"Show/Show.E01.1080p.mkv", "Show/Show S01e02.mkv", "Show/readme.txt"},
		},
	}
	r := newTestResolver(b)

	decisions, err := r.RenameTorrent(context.Background(), "aaa", "/media/show", "Show", "S01")
	require.NoError(t, err)
	require.Len(t, decisions, 3)

	assert.True(t, decisions[0].Changed)
	assert.Equal(t, "Show/Show S01e01 1080p.mkv", decisions[0].New)
	assert.False(t, decisions[1].Changed, "already canonical")
	assert.NoError(t, decisions[1].Err)
	assert.False(t, decisions[2].Changed)
	assert.ErrorIs(t, decisions[2].Err, ErrPatternNotFound)

	assert.Equal(t, []string{"Show/Show S01e01 1080p.mkv", "Show/Show S01e02.mkv", "Show/readme.txt"}, b.files["aaa"])
	assert.Equal(t, []string{"rename aaa Show/Show.E01.1080p.mkv"}, b.calls)
}

func TestResolver_RenameTorrent_NoFiles(t *testing.T) {
	b := &fakeBackend{files: map[string][]string{}}

	decisions, err := newTestResolver(b).RenameTorrent(context.Background(), "aaa", "/x", "Show", "S01")
	require.NoError(t, err)
	assert.Empty(t, decisions)
	assert.Empty(t, b.calls)
}

func TestResolver_RenameTorrent_Collision(t *testing.T) {
	b := &fakeBackend{
		torrents: []torrent.Torrent{
			{Hash: "old", SavePath: "/media/show/"},
			{Hash: "new", SavePath: "/media/show"},
			{Hash: "elsewhere", SavePath: "/media/other"},
		},
		files: map[string][]string{
			"old":       {"Show S01e05 1080p.mkv"},
			"new":       {"Show.E05.1080p.mkv"},
			"elsewhere": {"Show S01e05 1080p.mkv"},
		},
	}

	decisions, err := newTestResolver(b).RenameTorrent(context.Background(), "new", "/media/show", "Show", "S01")
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.True(t, decisions[0].Changed)

	assert.Equal(t, []string{"old"}, b.deleted, "only the sibling in the same save path is removed")
	assert.Equal(t, []string{"delete old purge=true", "rename new Show.E05.1080p.mkv"}, b.calls,
		"sibling is deleted before the rename")
	assert.Equal(t, []string{"Show S01e05 1080p.mkv"}, b.files["new"])
	assert.Contains(t, b.files, "elsewhere")
}

func TestResolver_RenameTorrent_CollisionDeleteFails(t *testing.T) {
	b := &fakeBackend{
		torrents: []torrent.Torrent{
			{Hash: "old", SavePath: "/media/show"},
			{Hash: "new", SavePath: "/media/show"},
		},
		files: map[string][]string{
			"old": {"Show S01e05.mkv"},
			"new": {"Show E05.mkv"},
		},
		deleteErr: map[string]error{"old": errors.New("409 conflict")},
	}

	decisions, err := newTestResolver(b).RenameTorrent(context.Background(), "new", "/media/show", "Show", "S01")
	assert.ErrorIs(t, err, ErrCollisionDeleteFailed)
	require.Len(t, decisions, 1)
	assert.True(t, decisions[0].Changed, "rename is still attempted")
	assert.Equal(t, []string{"Show S01e05.mkv"}, b.files["new"])
}

func TestResolver_RenameTorrent_PerFileIsolation(t *testing.T) {
	b := &fakeBackend{
		torrents: []torrent.Torrent{{Hash: "aaa", SavePath: "/s"}},
		files:    map[string][]string{"aaa": {"E01.mkv", "E02.mkv", "E03.mkv"}},
		renameErr: map[string]error{
			"E02.mkv": errors.New("file in use"),
		},
	}

	decisions, err := newTestResolver(b).RenameTorrent(context.Background(), "aaa", "/s", "Show", "S01")
	require.Error(t, err)
	require.Len(t, decisions, 3)
	assert.True(t, decisions[0].Changed)
	assert.False(t, decisions[1].Changed)
	assert.Error(t, decisions[1].Err)
	assert.True(t, decisions[2].Changed)
	assert.Equal(t, []string{"Show S01e01.mkv", "E02.mkv", "Show S01e03.mkv"}, b.files["aaa"])
}

func TestResolver_RenameTorrent_BackendDown(t *testing.T) {
	b := &fakeBackend{
		files: map[string][]string{"aaa": {"E01.mkv"}},
		listErr: fmt.Errorf("%w: list torrents: connection refused", torrent.ErrBackendUnavailable),
	}

	_, err := newTestResolver(b).RenameTorrent(context.Background(), "aaa", "/s", "Show", "S01")
	assert.ErrorIs(t, err, torrent.ErrBackendUnavailable)
	assert.Empty(t, b.calls)
}

func TestResolver_Preview(t *testing.T) {
	b := &fakeBackend{files: map[string][]string{"aaa": {"E01.mkv", "notes.txt"}}}

	decisions, err := newTestResolver(b).Preview(context.Background(), "aaa", "Show", "S01")
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	assert.Equal(t, Decision{Hash: "aaa", Old: "E01.mkv", New: "Show S01e01.mkv", Changed: true}, decisions[0])
	assert.ErrorIs(t, decisions[1].Err, ErrPatternNotFound)
	assert.Empty(t, b.calls, "preview never writes")
}

func TestCleanPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/media/show", "/media/show"},
		{" /media/show/ ", "/media/show"},
		{`\media\show\`, "/media/show"},
		{"/media//show/./", "/media/show"},
		{"  ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanPath(tt.in), "CleanPath(%q)", tt.in)
	}
}
