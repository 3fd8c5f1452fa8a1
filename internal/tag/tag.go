// Package tag derives the opaque identifiers that link episodes to backend torrents.
//
// A tag is the only correlation between an episode seen on a source page and a
// torrent living in the download client; nothing else is stored to pair them.
// Derive must therefore return the same value for the same inputs on every scan,
// in every process, forever.
package tag

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Prefix marks tags owned by arrwatch inside the download client.
const Prefix = "aw-"

var tagPattern = regexp.MustCompile(`^aw-[0-9a-f]{16}$`)

// Derive returns the tag for a series reference and a distinguishing token.
// The token is a quality label for whole-release sources or a zero-padded
// positional index for per-item sources (see Index).
func Derive(seriesRef, token string) string {
	d := xxhash.New()
	_, _ = d.WriteString(strings.TrimSpace(seriesRef))
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(strings.TrimSpace(token))
	return fmt.Sprintf("%s%016x", Prefix, d.Sum64())
}

// Index formats a positional token.
func Index(i int) string {
	return fmt.Sprintf("%02d", i)
}

// Valid reports whether s has the shape of a derived tag.
func Valid(s string) bool {
	return tagPattern.MatchString(s)
}
