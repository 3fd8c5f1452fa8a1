// Package rename derives canonical episode file names and applies them to
// torrents in the download backend.
package rename

import (
	"fmt"
	"regexp"
	"strings"
)

// episodePatterns are tried in order against the file stem; the first match
// wins and its first group is the episode number.
var episodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{2})\.\s*(.+?)(?:\s*\(.*\))?$`), // "01. Title"
	regexp.MustCompile(`.+\s+-\s+(\d{2})$`),                // "Title - 06"
	regexp.MustCompile(`Серия\s+(\d+)`),
	regexp.MustCompile(`Серии\s+(\d+)-(\d+)`),
	regexp.MustCompile(`\s(\d+)\s`),
	regexp.MustCompile(`_(\d+)_`),
	regexp.MustCompile(`\[(\d+)\]`),
	regexp.MustCompile(`[eE](\d+)`),
}

var resolutionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)720p`),
	regexp.MustCompile(`(?i)1080p`),
	regexp.MustCompile(`(?i)2160p`),
}

// DeriveName returns the canonical name for a torrent file:
// "{display} {season}e{NN}[ {resolution}]{ext}", keeping the directory
// prefix. ok is false when no episode number is found; the original name is
// returned unchanged in that case.
func DeriveName(oldName, display, season string) (string, bool) {
	dir, file := splitDir(oldName)
	stem, ext := splitExt(file)

	episode := ""
	for _, re := range episodePatterns {
		if m := re.FindStringSubmatch(stem); m != nil {
			episode = zeroPad(m[1])
			break
		}
	}
	if episode == "" {
		return oldName, false
	}

	resolution := ""
	for _, re := range resolutionPatterns {
		if m := re.FindString(stem); m != "" {
			resolution = " " + strings.ToLower(m)
			break
		}
	}

	name := fmt.Sprintf("%s %se%s%s%s", SanitizeName(display), SanitizeName(season), episode, resolution, ext)
	if dir != "" {
		return dir + "/" + name, true
	}
	return name, true
}

// splitDir splits a backend file name at the last "/".
func splitDir(name string) (dir, file string) {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// splitExt splits off the extension. Leading dots do not start one, so
// ".hidden" has no extension.
func splitExt(file string) (stem, ext string) {
	trimmed := strings.TrimLeft(file, ".")
	i := strings.LastIndexByte(trimmed, '.')
	if i < 0 {
		return file, ""
	}
	i += len(file) - len(trimmed)
	return file[:i], file[i:]
}

// zeroPad left-pads digits to at least two characters.
func zeroPad(digits string) string {
	if len(digits) >= 2 {
		return digits
	}
	return strings.Repeat("0", 2-len(digits)) + digits
}
