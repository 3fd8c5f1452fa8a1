// Package astar reads per-episode torrent lists from astar.bz series pages.
package astar

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vmunix/arrwatch/internal/source"
	"github.com/vmunix/arrwatch/internal/tag"
)

// Host is the site served by this source.
const Host = "astar.bz"

const datePrefix = "Дата:"

// dateLayouts are tried in order against the text after the date prefix.
var dateLayouts = []string{
	"02.01.2006, 15:04:05",
	"02.01.2006, 15:04",
	"02.01.2006 15:04",
	"02.01.2006",
}

// Source reads astar.bz pages. Each div.torrent block is one episode; its
// position on the page is the episode token.
type Source struct {
	fetch *source.Fetcher
	log   *slog.Logger
}

// New creates an astar source.
func New(fetch *source.Fetcher, log *slog.Logger) *Source {
	if log == nil {
		log = slog.Default()
	}
	return &Source{fetch: fetch, log: log.With("source", Host)}
}

// Episodes implements source.Source. The site has a single quality per page,
// so quality is ignored.
func (s *Source) Episodes(ctx context.Context, ref, quality string) ([]source.Episode, error) {
	doc, err := s.fetch.Page(ctx, ref)
	if err != nil {
		return nil, err
	}
	episodes, err := parse(doc, ref)
	if err != nil {
		return nil, err
	}
	s.log.Debug("parsed series page", "ref", ref, "episodes", len(episodes))
	return episodes, nil
}

// FetchPayload implements source.Source.
func (s *Source) FetchPayload(ctx context.Context, locator string) ([]byte, error) {
	return s.fetch.Payload(ctx, locator)
}

func parse(doc *goquery.Document, ref string) ([]source.Episode, error) {
	blocks := doc.Find("div.torrent")
	if blocks.Length() == 0 && doc.Find("h1.post_h1").Length() == 0 {
		return nil, fmt.Errorf("%w: no torrent blocks or title on %s", source.ErrParseError, ref)
	}

	root := siteRoot(ref)
	var episodes []source.Episode
	blocks.Each(func(i int, block *goquery.Selection) {
		link := block.Find(`a[href*="gettorrent.php?id="]`).First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}

		name := strings.TrimSpace(link.Find("div.info_d1").Text())
		if name == "" {
			name = strings.TrimSpace(link.Text())
		}

		episodes = append(episodes, source.Episode{
			Name:      name,
			Locator:   source.ResolveLink(root, strings.TrimPrefix(href, "/")),
			Token:     tag.Index(i),
			UpdatedAt: blockDate(block),
		})
	})
	return episodes, nil
}

// blockDate reads the "Дата: ..." line of a torrent block.
func blockDate(block *goquery.Selection) time.Time {
	var updated time.Time
	block.Find("div.bord_a1").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		text := strings.TrimSpace(div.Text())
		idx := strings.Index(text, datePrefix)
		if idx < 0 {
			return true
		}
		value := strings.TrimSpace(text[idx+len(datePrefix):])
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, value); err == nil {
				updated = t
				break
			}
		}
		return false
	})
	return updated
}

// siteRoot returns scheme://host/ of ref. Torrent links on the site are
// relative to the root, not to the page.
func siteRoot(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return ref
	}
	return u.Scheme + "://" + u.Host + "/"
}

var _ source.Source = (*Source)(nil)
