package output

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// deaccent strips combining marks after canonical decomposition, so
// accented logical names slug to plain ASCII where possible.
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug normalizes a logical chunk name into a safe file-name fragment:
// accents removed, lowercased, runs of non-alphanumerics collapsed to a
// single dash.
func Slug(name string) string {
	normalized, _, err := transform.String(deaccent, name)
	if err != nil {
		normalized = name
	}

	var b strings.Builder
	lastDash := true // suppress leading dash
	for _, r := range strings.ToLower(normalized) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
