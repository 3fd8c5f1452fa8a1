package rename

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// illegalChars are characters not allowed in filenames on common filesystems.
var illegalChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// multiSpace matches multiple consecutive spaces.
var multiSpace = regexp.MustCompile(`\s+`)

// SanitizeName makes a display name safe to use inside a file name. It is
// NFC-normalized so names typed on different systems compare equal.
func SanitizeName(name string) string {
	name = norm.NFC.String(name)
	name = illegalChars.ReplaceAllString(name, " ")
	name = multiSpace.ReplaceAllString(name, " ")
	return strings.Trim(name, " .")
}
