package torrent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMagnet = "magnet:?xt=urn:btih:c12fe1c06bba254a9dc9f519b335aa7c1367a88a&dn=Show"

// fakeAPI is an in-memory qBittorrent.
type fakeAPI struct {
	mu sync.Mutex

	version  string
	loginErr error
	listErr  error
	addErr   error

	torrents []qbt.Torrent
	files    map[string]qbt.TorrentFiles

	// listAfterAdd makes added torrents visible only after n list calls.
	listAfterAdd int
	pending      []qbt.Torrent
	listCalls    int

	logins    int
	added     []map[string]string
	tagged    []string
	renamed   [][3]string
	deleted   []string
	purged    []bool
	ignoreTag bool
}

func (f *fakeAPI) LoginCtx(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	return f.loginErr
}

func (f *fakeAPI) GetWebAPIVersionCtx(context.Context) (string, error) {
	return f.version, nil
}

func (f *fakeAPI) GetTorrentsCtx(_ context.Context, o qbt.TorrentFilterOptions) ([]qbt.Torrent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.listCalls++
	if len(f.pending) > 0 && f.listCalls > f.listAfterAdd {
		f.torrents = append(f.torrents, f.pending...)
		f.pending = nil
	}
	if len(o.Hashes) == 0 {
		return append([]qbt.Torrent(nil), f.torrents...), nil
	}
	var out []qbt.Torrent
	for _, t := range f.torrents {
		for _, h := range o.Hashes {
			if strings.EqualFold(t.Hash, h) {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (f *fakeAPI) GetFilesInformationCtx(_ context.Context, hash string) (*qbt.TorrentFiles, error) {
	files := f.files[hash]
	return &files, nil
}

func (f *fakeAPI) add(hash string, options map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, options)
	tags := options["tags"]
	if f.ignoreTag {
		tags = ""
	}
	for _, t := range f.torrents {
		if t.Hash == hash {
			return nil
		}
	}
	f.pending = append(f.pending, qbt.Torrent{
		Hash:     hash,
		Name:     "Show",
		Tags:     tags,
		SavePath: options["savepath"],
		State:    qbt.TorrentStateMetaDl,
	})
	f.listCalls = 0
	return nil
}

func (f *fakeAPI) AddTorrentFromMemoryCtx(_ context.Context, buf []byte, options map[string]string) error {
	h, err := FilePayload(buf).InfoHash()
	if err != nil {
		return err
	}
	return f.add(h, options)
}

func (f *fakeAPI) AddTorrentFromUrlCtx(_ context.Context, url string, options map[string]string) error {
	h, err := MagnetPayload(url).InfoHash()
	if err != nil {
		return err
	}
	return f.add(h, options)
}

func (f *fakeAPI) AddTagsCtx(_ context.Context, hashes []string, tags string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tagged = append(f.tagged, tags)
	for i := range f.torrents {
		for _, h := range hashes {
			if f.torrents[i].Hash == h {
				if f.torrents[i].Tags == "" {
					f.torrents[i].Tags = tags
				} else {
					f.torrents[i].Tags += ", " + tags
				}
			}
		}
	}
	return nil
}

func (f *fakeAPI) RenameFileCtx(_ context.Context, hash, oldPath, newPath string) error {
	f.renamed = append(f.renamed, [3]string{hash, oldPath, newPath})
	return nil
}

func (f *fakeAPI) DeleteTorrentsCtx(_ context.Context, hashes []string, deleteFiles bool) error {
	f.deleted = append(f.deleted, hashes...)
	f.purged = append(f.purged, deleteFiles)
	return nil
}

func newTestClient(api *fakeAPI) *QBittorrentClient {
	c := newQBittorrentClient(api, 200*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.pollInterval = 5 * time.Millisecond
	return c
}

func TestQBittorrentClient_Connect(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantErr error
	}{
		{"supported", "2.11.4", nil},
		{"minimum", "2.3.0", nil},
		{"too old", "2.2.1", ErrUnsupportedVersion},
		{"garbage", "not-a-version", ErrUnsupportedVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(&fakeAPI{version: tt.version})
			err := c.Connect(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQBittorrentClient_LoginFailure(t *testing.T) {
	c := newTestClient(&fakeAPI{loginErr: errors.New("forbidden")})

	_, err := c.ListTorrents(context.Background())
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestQBittorrentClient_SessionReused(t *testing.T) {
	api := &fakeAPI{version: "2.9.0"}
	c := newTestClient(api)
	ctx := context.Background()

	_, err := c.ListTorrents(ctx)
	require.NoError(t, err)
	_, err = c.ListTorrents(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, api.logins)
}

func TestQBittorrentClient_AddTorrent_Magnet(t *testing.T) {
	api := &fakeAPI{listAfterAdd: 2}
	c := newTestClient(api)

	hash, err := c.AddTorrent(context.Background(), MagnetPayload(testMagnet), "/media/show", "aw-0011223344556677")
	require.NoError(t, err)
	assert.Equal(t, "c12fe1c06bba254a9dc9f519b335aa7c1367a88a", hash)

	require.Len(t, api.added, 1)
	assert.Equal(t, "/media/show", api.added[0]["savepath"])
	assert.Equal(t, "aw-0011223344556677", api.added[0]["tags"])
	assert.Equal(t, "false", api.added[0]["autoTMM"])
	assert.Equal(t, "Original", api.added[0]["contentLayout"])
}

func TestQBittorrentClient_AddTorrent_Metainfo(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(api)
	data := []byte("d4:infod6:lengthi12e4:name8:test.mkv12:piece lengthi16384eee")
	want, err := FilePayload(data).InfoHash()
	require.NoError(t, err)

	hash, err := c.AddTorrent(context.Background(), FilePayload(data), "/media/show", "aw-0011223344556677")
	require.NoError(t, err)
	assert.Equal(t, want, hash)
}

func TestQBittorrentClient_AddTorrent_ExistingWithoutTag(t *testing.T) {
	api := &fakeAPI{
		torrents: []qbt.Torrent{{Hash: "c12fe1c06bba254a9dc9f519b335aa7c1367a88a", Tags: "other"}},
	}
	c := newTestClient(api)

	hash, err := c.AddTorrent(context.Background(), MagnetPayload(testMagnet), "/media/show", "aw-0011223344556677")
	require.NoError(t, err)
	assert.Equal(t, "c12fe1c06bba254a9dc9f519b335aa7c1367a88a", hash)
	assert.Equal(t, []string{"aw-0011223344556677"}, api.tagged)

	torrents, err := c.ListTorrents(context.Background())
	require.NoError(t, err)
	assert.True(t, torrents[0].HasTag("aw-0011223344556677"))
	assert.True(t, torrents[0].HasTag("other"))
}

func TestQBittorrentClient_AddTorrent_NeverListed(t *testing.T) {
	api := &fakeAPI{listAfterAdd: 1 << 30}
	c := newTestClient(api)

	_, err := c.AddTorrent(context.Background(), MagnetPayload(testMagnet), "/media/show", "aw-0011223344556677")
	assert.ErrorIs(t, err, ErrAddUnconfirmed)
}

func TestQBittorrentClient_AddTorrent_UnsupportedPayload(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(api)

	_, err := c.AddTorrent(context.Background(), FilePayload([]byte("<html></html>")), "/x", "aw-0011223344556677")
	assert.ErrorIs(t, err, ErrUnsupportedPayload)
	assert.Empty(t, api.added)
}

func TestQBittorrentClient_Status(t *testing.T) {
	api := &fakeAPI{
		torrents: []qbt.Torrent{
			{Hash: "aaa", Progress: 0.5, State: qbt.TorrentStateDownloading},
			{Hash: "bbb", Progress: 0.99, State: qbt.TorrentStateStalledUp},
			{Hash: "ccc", Progress: 1, State: qbt.TorrentStatePausedUp},
		},
	}
	c := newTestClient(api)
	ctx := context.Background()

	st, err := c.Status(ctx, "aaa")
	require.NoError(t, err)
	assert.Equal(t, StateDownloading, st.State)
	assert.False(t, st.Completed)

	st, err = c.Status(ctx, "bbb")
	require.NoError(t, err)
	assert.True(t, st.Completed, "seeding counts as complete")

	st, err = c.Status(ctx, "ccc")
	require.NoError(t, err)
	assert.True(t, st.Completed)

	_, err = c.Status(ctx, "zzz")
	assert.ErrorIs(t, err, ErrTorrentNotFound)
}

func TestQBittorrentClient_FilesRenameDelete(t *testing.T) {
	api := &fakeAPI{
		files: map[string]qbt.TorrentFiles{
			"aaa": {{Name: "Show/ep01.mkv", Size: 1}, {Name: "Show/ep02.mkv", Size: 1}},
		},
	}
	c := newTestClient(api)
	ctx := context.Background()

	files, err := c.ListFiles(ctx, "aaa")
	require.NoError(t, err)
	assert.Equal(t, []string{"Show/ep01.mkv", "Show/ep02.mkv"}, files)

	require.NoError(t, c.RenameFile(ctx, "aaa", "Show/ep01.mkv", "Show/Show S01E01.mkv"))
	assert.Equal(t, [][3]string{{"aaa", "Show/ep01.mkv", "Show/Show S01E01.mkv"}}, api.renamed)

	require.NoError(t, c.DeleteTorrent(ctx, "bbb", true))
	assert.Equal(t, []string{"bbb"}, api.deleted)
	assert.Equal(t, []bool{true}, api.purged)
}

func TestQBittorrentClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewQBittorrentClient(QBittorrentConfig{URL: url, Timeout: time.Second}, nil)
	_, err := c.ListTorrents(context.Background())
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestIsTransportError(t *testing.T) {
	assert.False(t, isTransportError(errors.New("409 conflict")))
}
