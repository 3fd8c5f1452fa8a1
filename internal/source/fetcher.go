package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/avast/retry-go"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/net/html/charset"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"

// maxBodySize bounds pages and payloads read from a site.
const maxBodySize = 16 << 20

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	UserAgent  string
	Retries    uint
	RetryDelay time.Duration
	Timeout    time.Duration
	CacheSize  int
	CacheTTL   time.Duration
}

// Fetcher is the HTTP client shared by sources.
type Fetcher struct {
	client *http.Client
	cfg    FetcherConfig
	cache  *lru.LRU[string, []byte]
	log    *slog.Logger
}

// NewFetcher creates a fetcher. Zero config values take defaults.
func NewFetcher(cfg FetcherConfig, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Retries == 0 {
		cfg.Retries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 64
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	return &Fetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		cache:  lru.NewLRU[string, []byte](cfg.CacheSize, nil, cfg.CacheTTL),
		log:    log.With("component", "fetcher"),
	}
}

// statusError is a non-200 response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// retryable reports whether a failed request is worth repeating. Client
// errors other than 408 and 429 are final.
func retryable(err error) bool {
	if !retry.IsRecoverable(err) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests || se.code == http.StatusRequestTimeout
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Page fetches a series page, converts it to UTF-8 and parses it.
func (f *Fetcher) Page(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, contentType, err := f.get(ctx, pageURL, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, pageURL, err)
	}

	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrParseError, pageURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParseError, pageURL, err)
	}
	return doc, nil
}

// Payload downloads raw payload bytes. Only bencoded bodies are accepted and
// cached, so a payload that failed to add is not fetched again within the
// cache TTL while an expired-link page is retried on the next scan.
func (f *Fetcher) Payload(ctx context.Context, payloadURL string) ([]byte, error) {
	if data, ok := f.cache.Get(payloadURL); ok {
		f.log.Debug("payload cache hit", "url", payloadURL)
		return data, nil
	}
	data, _, err := f.get(ctx, payloadURL, "application/x-bittorrent,*/*;q=0.8")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPayloadFetchFailed, payloadURL, err)
	}
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0:
		return nil, fmt.Errorf("%w: %s: empty body", ErrPayloadFetchFailed, payloadURL)
	case data[0] != 'd':
		return nil, fmt.Errorf("%w: %s: not a torrent file", ErrPayloadFetchFailed, payloadURL)
	}
	f.cache.Add(payloadURL, data)
	return data, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL, accept string) ([]byte, string, error) {
	var (
		body        []byte
		contentType string
	)
	err := retry.Do(
		func() error {
			var err error
			body, contentType, err = f.do(ctx, rawURL, accept)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(f.cfg.Retries),
		retry.Delay(f.cfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			f.log.Warn("request failed, retrying", "url", rawURL, "attempt", n+1, "max_attempts", f.cfg.Retries, "error", err)
		}),
	)
	if err != nil {
		return nil, "", err
	}
	return body, contentType, nil
}

func (f *Fetcher) do(ctx context.Context, rawURL, accept string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", retry.Unrecoverable(err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.5,en;q=0.3")
	if u, err := url.Parse(rawURL); err == nil {
		req.Header.Set("Referer", u.Scheme+"://"+u.Host+"/")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, "", &statusError{code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// ResolveLink resolves href relative to the page it was found on.
func ResolveLink(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
