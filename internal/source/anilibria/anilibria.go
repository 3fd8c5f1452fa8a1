// Package anilibria reads whole-season releases from anilibria.top.
//
// A release page lists one torrent per quality. Each torrent is replaced in
// place when new episodes come out, so the page date is the only signal that
// a tracked release changed.
package anilibria

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vmunix/arrwatch/internal/source"
)

// Host is the site served by this source.
const Host = "anilibria.top"

const dateLayout = "02.01.2006, 15:04:05"

var seasonSuffixes = []string{" 1st Season", " 2nd Season", " 3rd Season"}

// Source reads anilibria release pages.
type Source struct {
	fetch *source.Fetcher
	log   *slog.Logger
}

// New creates an anilibria source.
func New(fetch *source.Fetcher, log *slog.Logger) *Source {
	if log == nil {
		log = slog.Default()
	}
	return &Source{fetch: fetch, log: log.With("source", Host)}
}

// Episodes implements source.Source. The quality label is the episode token.
func (s *Source) Episodes(ctx context.Context, ref, quality string) ([]source.Episode, error) {
	doc, err := s.fetch.Page(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.parse(doc, ref, quality)
}

// FetchPayload implements source.Source. Releases carry magnet links only.
func (s *Source) FetchPayload(_ context.Context, locator string) ([]byte, error) {
	return nil, fmt.Errorf("%w: %s publishes magnet links only (%s)", source.ErrPayloadFetchFailed, Host, locator)
}

func (s *Source) parse(doc *goquery.Document, ref, quality string) ([]source.Episode, error) {
	title := strings.TrimSpace(doc.Find("div.fz-70.ff-heading").First().Text())
	if title == "" {
		return nil, fmt.Errorf("%w: release title not found on %s", source.ErrParseError, ref)
	}
	for _, suffix := range seasonSuffixes {
		title = strings.ReplaceAll(title, suffix, "")
	}

	var episodes []source.Episode
	doc.Find("div.v-list-item--one-line").Each(func(_ int, item *goquery.Selection) {
		label := strings.TrimSpace(item.Find("div.fz-65.text-grey-darken-2").First().Text())
		if label == "" {
			return
		}
		label = strings.ReplaceAll(label, " • ", " ")
		if quality != "" && label != quality {
			return
		}

		updated, ok := itemDate(item)
		if !ok {
			s.log.Warn("release item without update date", "ref", ref, "quality", label)
			return
		}
		magnet, ok := item.Find(`a[href^="magnet:"]`).First().Attr("href")
		if !ok {
			s.log.Warn("release item without magnet", "ref", ref, "quality", label)
			return
		}

		episodes = append(episodes, source.Episode{
			Name:      title,
			Locator:   ref,
			Magnet:    magnet,
			Token:     label,
			Quality:   label,
			UpdatedAt: updated,
		})
	})

	s.log.Debug("parsed release page", "ref", ref, "quality", quality, "items", len(episodes))
	return episodes, nil
}

func itemDate(item *goquery.Selection) (time.Time, bool) {
	var (
		updated time.Time
		found   bool
	)
	item.Find("div.fz-75.text-grey").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		text := strings.TrimSpace(div.Text())
		if !strings.Contains(text, ",") {
			return true
		}
		t, err := time.Parse(dateLayout, text)
		if err != nil {
			return true
		}
		updated, found = t, true
		return false
	})
	return updated, found
}

var _ source.Source = (*Source)(nil)
