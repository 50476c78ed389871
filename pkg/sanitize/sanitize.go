package sanitize

import (
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var ugc = bluemonday.UGCPolicy()

// Text normalises user-supplied plain text for storage. Markup is kept
// verbatim; it is escaped wherever the text is rendered as HTML.
func Text(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s))
}

// HTML runs rendered HTML through the user-content policy, removing scripts,
// event handlers and unsafe URLs while leaving escaped text untouched.
func HTML(s string) string {
	return ugc.Sanitize(s)
}
