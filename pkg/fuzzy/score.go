// Package fuzzy ranks candidate tracks found on third-party sources against the
// wanted track.
package fuzzy

import (
	"math"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"trackhound/internal/core"
)

var levenshtein = func() *metrics.Levenshtein {
	m := metrics.NewLevenshtein()
	m.CaseSensitive = false
	return m
}()

// Score returns the normalized Levenshtein similarity of a and b in the range
// 0-100, ignoring case. Empty input scores 0.
func Score(a, b string) int {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return 0
	}
	return int(math.Round(strutil.Similarity(a, b, levenshtein) * 100))
}

// PairScore combines the title and artist similarity of a hit on a 0-200 scale.
// Without metadata the whole hit is compared to the raw query, which caps the
// result at 100.
func PairScore(track, artist string, meta *core.TrackMetadata, query string) int {
	switch {
	case meta != nil && meta.Name != "" && meta.Artist != "":
		return Score(track, meta.Name) + Score(artist, meta.Artist)
	case meta != nil && meta.Name != "":
		return Score(track, meta.Name)
	default:
		full := track
		if artist != "" {
			full = artist + " - " + track
		}
		return Score(full, query)
	}
}

// SplitTitle splits a page title of the form "Artist{sep}Track". When sep is
// absent the whole title is the track.
func SplitTitle(title, sep string) (artist, track string) {
	title = strings.TrimSpace(title)
	parts := strings.SplitN(title, sep, 2)
	if len(parts) < 2 {
		return "", title
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}
