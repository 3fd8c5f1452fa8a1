package torrent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Masterminds/semver/v3"
	qbt "github.com/autobrr/go-qbittorrent"
)

// MinWebAPIVersion is the oldest qBittorrent WebAPI that supports tags.
const MinWebAPIVersion = "2.3.0"

const (
	defaultSettleTimeout = 10 * time.Second
	settlePollInterval   = 500 * time.Millisecond
)

// qbtAPI is the subset of the qBittorrent client used here.
type qbtAPI interface {
	LoginCtx(ctx context.Context) error
	GetWebAPIVersionCtx(ctx context.Context) (string, error)
	GetTorrentsCtx(ctx context.Context, o qbt.TorrentFilterOptions) ([]qbt.Torrent, error)
	GetFilesInformationCtx(ctx context.Context, hash string) (*qbt.TorrentFiles, error)
	AddTorrentFromMemoryCtx(ctx context.Context, buf []byte, options map[string]string) error
	AddTorrentFromUrlCtx(ctx context.Context, url string, options map[string]string) error
	AddTagsCtx(ctx context.Context, hashes []string, tags string) error
	RenameFileCtx(ctx context.Context, hash, oldPath, newPath string) error
	DeleteTorrentsCtx(ctx context.Context, hashes []string, deleteFiles bool) error
}

// QBittorrentConfig holds connection settings for qBittorrent.
type QBittorrentConfig struct {
	URL           string
	Username      string
	Password      string
	Timeout       time.Duration
	SettleTimeout time.Duration
}

// QBittorrentClient talks to the qBittorrent WebAPI.
type QBittorrentClient struct {
	api           qbtAPI
	settleTimeout time.Duration
	pollInterval  time.Duration
	log           *slog.Logger

	mu       sync.Mutex
	loggedIn bool
}

// NewQBittorrentClient creates a new qBittorrent client. No request is made
// until Connect or the first call.
func NewQBittorrentClient(cfg QBittorrentConfig, log *slog.Logger) *QBittorrentClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	api := qbt.NewClient(qbt.Config{
		Host:     strings.TrimSuffix(cfg.URL, "/"),
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  int(timeout / time.Second),
	})
	return newQBittorrentClient(api, cfg.SettleTimeout, log)
}

func newQBittorrentClient(api qbtAPI, settle time.Duration, log *slog.Logger) *QBittorrentClient {
	if log == nil {
		log = slog.Default()
	}
	if settle <= 0 {
		settle = defaultSettleTimeout
	}
	return &QBittorrentClient{
		api:           api,
		settleTimeout: settle,
		pollInterval:  settlePollInterval,
		log:           log.With("component", "qbittorrent"),
	}
}

// Connect logs in and verifies the WebAPI version.
func (c *QBittorrentClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.loggedIn = false
	c.mu.Unlock()
	if err := c.ensureSession(ctx); err != nil {
		return err
	}
	v, err := c.Version(ctx)
	if err != nil {
		return err
	}
	if err := checkVersion(v); err != nil {
		return err
	}
	c.log.Info("connected", "webapi", v)
	return nil
}

func (c *QBittorrentClient) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loggedIn {
		return nil
	}
	if err := c.api.LoginCtx(ctx); err != nil {
		return fmt.Errorf("%w: login: %v", ErrBackendUnavailable, err)
	}
	c.loggedIn = true
	return nil
}

// dropSession forces a fresh login on the next call.
func (c *QBittorrentClient) dropSession() {
	c.mu.Lock()
	c.loggedIn = false
	c.mu.Unlock()
}

// Version returns the qBittorrent WebAPI version.
func (c *QBittorrentClient) Version(ctx context.Context) (string, error) {
	if err := c.ensureSession(ctx); err != nil {
		return "", err
	}
	v, err := c.api.GetWebAPIVersionCtx(ctx)
	if err != nil {
		c.dropSession()
		return "", fmt.Errorf("%w: webapi version: %v", ErrBackendUnavailable, err)
	}
	return v, nil
}

func checkVersion(v string) error {
	got, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnsupportedVersion, v, err)
	}
	if got.LessThan(semver.MustParse(MinWebAPIVersion)) {
		return fmt.Errorf("%w: %s < %s", ErrUnsupportedVersion, v, MinWebAPIVersion)
	}
	return nil
}

// AddTorrent adds payload to qBittorrent with tag attached and waits until
// the torrent is listed. The expected info-hash is preferred when matching,
// the tag is the fallback.
func (c *QBittorrentClient) AddTorrent(ctx context.Context, payload Payload, savePath, tag string) (string, error) {
	expected, err := payload.InfoHash()
	if err != nil {
		return "", err
	}
	if err := c.ensureSession(ctx); err != nil {
		return "", err
	}

	opts := map[string]string{
		"savepath":      savePath,
		"tags":          tag,
		"autoTMM":       "false",
		"contentLayout": "Original",
	}

	c.log.Debug("adding torrent", "tag", tag, "hash", expected, "magnet", payload.IsMagnet())
	if payload.IsMagnet() {
		err = c.api.AddTorrentFromUrlCtx(ctx, payload.Magnet, opts)
	} else {
		err = c.api.AddTorrentFromMemoryCtx(ctx, payload.Data, opts)
	}
	if err != nil {
		return "", c.classify("add torrent", err)
	}

	return c.settle(ctx, expected, tag)
}

// settle polls the torrent list until the added torrent shows up.
func (c *QBittorrentClient) settle(ctx context.Context, expected, tag string) (string, error) {
	deadline := time.Now().Add(c.settleTimeout)
	for {
		torrents, err := c.ListTorrents(ctx)
		if err != nil {
			return "", err
		}
		for _, t := range torrents {
			if !strings.EqualFold(t.Hash, expected) {
				continue
			}
			// The backend ignores tags for torrents it already knew about.
			if !t.HasTag(tag) {
				if err := c.api.AddTagsCtx(ctx, []string{t.Hash}, tag); err != nil {
					return "", c.classify("tag torrent", err)
				}
				c.log.Debug("tagged existing torrent", "hash", t.Hash, "tag", tag)
			}
			return t.Hash, nil
		}
		if t, ok := FindByTag(torrents, tag); ok {
			return t.Hash, nil
		}

		if time.Now().After(deadline) {
			return "", fmt.Errorf("%w: tag %s", ErrAddUnconfirmed, tag)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// ListTorrents returns every torrent in qBittorrent.
func (c *QBittorrentClient) ListTorrents(ctx context.Context) ([]Torrent, error) {
	return c.list(ctx, qbt.TorrentFilterOptions{})
}

func (c *QBittorrentClient) list(ctx context.Context, opts qbt.TorrentFilterOptions) ([]Torrent, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}
	raw, err := c.api.GetTorrentsCtx(ctx, opts)
	if err != nil {
		c.dropSession()
		return nil, fmt.Errorf("%w: list torrents: %v", ErrBackendUnavailable, err)
	}
	torrents := make([]Torrent, 0, len(raw))
	for _, t := range raw {
		torrents = append(torrents, convertTorrent(t))
	}
	return torrents, nil
}

func convertTorrent(t qbt.Torrent) Torrent {
	return Torrent{
		Hash:     strings.ToLower(t.Hash),
		Name:     t.Name,
		Tags:     SplitTags(t.Tags),
		SavePath: t.SavePath,
		Progress: t.Progress,
		State:    mapState(t.State),
	}
}

// ListFiles returns the relative file names of a torrent.
func (c *QBittorrentClient) ListFiles(ctx context.Context, hash string) ([]string, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}
	files, err := c.api.GetFilesInformationCtx(ctx, hash)
	if err != nil {
		return nil, c.classify("list files", err)
	}
	if files == nil {
		return nil, nil
	}
	names := make([]string, 0, len(*files))
	for _, f := range *files {
		names = append(names, f.Name)
	}
	return names, nil
}

// RenameFile renames one file inside a torrent.
func (c *QBittorrentClient) RenameFile(ctx context.Context, hash, oldName, newName string) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}
	if err := c.api.RenameFileCtx(ctx, hash, oldName, newName); err != nil {
		return c.classify("rename file", err)
	}
	c.log.Debug("renamed file", "hash", hash, "old", oldName, "new", newName)
	return nil
}

// DeleteTorrent removes a torrent. With purgeFiles the data is removed too.
func (c *QBittorrentClient) DeleteTorrent(ctx context.Context, hash string, purgeFiles bool) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}
	if err := c.api.DeleteTorrentsCtx(ctx, []string{hash}, purgeFiles); err != nil {
		return c.classify("delete torrent", err)
	}
	c.log.Info("deleted torrent", "hash", hash, "purge_files", purgeFiles)
	return nil
}

// Status returns the live state of one torrent.
func (c *QBittorrentClient) Status(ctx context.Context, hash string) (*Status, error) {
	torrents, err := c.list(ctx, qbt.TorrentFilterOptions{Hashes: []string{hash}})
	if err != nil {
		return nil, err
	}
	for _, t := range torrents {
		if strings.EqualFold(t.Hash, hash) {
			return &Status{
				Hash:      t.Hash,
				State:     t.State,
				Progress:  t.Progress,
				Completed: t.Completed(),
			}, nil
		}
	}
	return nil, ErrTorrentNotFound
}

// classify wraps transport failures as ErrBackendUnavailable and leaves
// request-level failures as plain errors.
func (c *QBittorrentClient) classify(op string, err error) error {
	if isTransportError(err) {
		c.dropSession()
		return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTransportError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

var _ Client = (*QBittorrentClient)(nil)
