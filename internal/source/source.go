// Package source reads episode listings from series pages hosted on
// third-party sites.
package source

import (
	"context"
	"time"
)

// Episode is one downloadable item found on a series page. Episodes are
// recomputed on every scan and never stored.
type Episode struct {
	Name    string
	Locator string // fetchable payload reference
	Magnet  string // embedded magnet URI, if the page carries one
	// Token distinguishes the episode within its series. The opaque tag is
	// derived from the series reference and this token.
	Token     string
	Tag       string
	Quality   string
	UpdatedAt time.Time // zero when the site publishes no date
}

// Source is a site-specific episode reader.
type Source interface {
	// Episodes returns the episodes of the series at ref in page order.
	// A non-empty quality keeps only matching items.
	Episodes(ctx context.Context, ref, quality string) ([]Episode, error)
	// FetchPayload downloads the .torrent bytes behind a locator.
	FetchPayload(ctx context.Context, locator string) ([]byte, error)
}
