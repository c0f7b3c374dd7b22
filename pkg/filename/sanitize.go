// Package filename turns arbitrary titles into names that are safe on every filesystem.
package filename

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// Placeholder replaces every character that is not allowed in a file name.
	Placeholder = '_'
	// MaxBytes is the upper bound for the UTF-8 encoded length of a cleaned name.
	MaxBytes = 200
	// Fallback is returned when nothing usable survives cleaning.
	Fallback = "track"

	forbiddenChars = `<>:"/\|?*` + " \t"
)

// Clean normalizes s into a filesystem-safe name. It never fails and
// Clean(Clean(s)) == Clean(s) for every input.
func Clean(s string) string {
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))

	lastWasPlaceholder := false
	for _, r := range s {
		if strings.ContainsRune(forbiddenChars, r) {
			r = Placeholder
		} else if unicode.Is(unicode.C, r) {
			continue
		}

		if r == Placeholder {
			if lastWasPlaceholder {
				continue
			}
			lastWasPlaceholder = true
		} else {
			lastWasPlaceholder = false
		}
		b.WriteRune(r)
	}

	out := strings.Trim(b.String(), string(Placeholder))
	out = truncateBytes(out, MaxBytes)
	out = strings.Trim(out, string(Placeholder))

	if out == "" {
		return Fallback
	}
	return out
}

// WithExt cleans title and appends ext (given with or without the leading dot).
func WithExt(title, ext string) string {
	return Clean(title) + "." + strings.TrimPrefix(ext, ".")
}

// truncateBytes cuts s to at most limit bytes without splitting a rune.
func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
