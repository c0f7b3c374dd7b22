package fuzzy

import (
	"sort"
	"strings"

	"trackhound/internal/core"
)

const (
	baseVersionScore       = 100
	nonOriginalPenalty     = 30
	slowedPenalty          = 50
	originalBonus          = 20
	exactDurationBonus     = 25
	closeDurationBonus     = 10
	wrongDurationPenalty   = 15
	exactDurationSeconds   = 5
	closeDurationSeconds   = 15
	viralPopularity        = 1_000_000
	popularPopularity      = 100_000
	viralPopularityBonus   = 15
	popularPopularityBonus = 10
)

var nonOriginalKeywords = []string{
	"slowed", "sped up", "nightcore", "remix", "edit", "mashup",
	"cover", "acoustic", "live", "instrumental", "karaoke",
	"guitar", "piano", "orchestral", "orchestra", "symphony",
	"extended", "club", "radio", "clean", "explicit",
	"reverb", "echo", "bass boosted", "8d", "3d", "spatial",
	"super slowed", "ultra slowed", "extreme slowed", "heavily slowed",
	"slowed down", "slow version", "slow edit", "slow remix",
}

var slowedKeywords = []string{"slowed", "super slowed", "ultra slowed", "extreme slowed"}

var originalKeywords = []string{
	"original", "official", "studio", "album version",
	"single", "main", "standard",
}

// VersionScore rates how likely c is the original studio recording of target.
// Keywords match as case-insensitive substrings of the title; each keyword
// counts once.
func VersionScore(c core.Candidate, target *core.TrackMetadata) int {
	title := strings.ToLower(c.Title)
	score := baseVersionScore

	for _, kw := range nonOriginalKeywords {
		if strings.Contains(title, kw) {
			score -= nonOriginalPenalty
		}
	}
	for _, kw := range slowedKeywords {
		if strings.Contains(title, kw) {
			score -= slowedPenalty
			break
		}
	}
	for _, kw := range originalKeywords {
		if strings.Contains(title, kw) {
			score += originalBonus
		}
	}

	if target != nil && target.DurationSeconds > 0 && c.DurationSeconds > 0 {
		diff := c.DurationSeconds - target.DurationSeconds
		if diff < 0 {
			diff = -diff
		}
		switch {
		case diff <= exactDurationSeconds:
			score += exactDurationBonus
		case diff <= closeDurationSeconds:
			score += closeDurationBonus
		default:
			score -= wrongDurationPenalty
		}
	}

	switch {
	case c.Popularity > viralPopularity:
		score += viralPopularityBonus
	case c.Popularity > popularPopularity:
		score += popularPopularityBonus
	}

	return score
}

// FilterOriginalVersions scores every candidate, sorts them by descending score
// keeping input order among ties, and drops those scoring zero or less.
func FilterOriginalVersions(cands []core.Candidate, target *core.TrackMetadata) []core.ScoredCandidate {
	scored := make([]core.ScoredCandidate, 0, len(cands))
	for _, c := range cands {
		scored = append(scored, core.ScoredCandidate{Candidate: c, Score: VersionScore(c, target)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	out := scored[:0]
	for _, sc := range scored {
		if sc.Score > 0 {
			out = append(out, sc)
		}
	}
	return out
}
