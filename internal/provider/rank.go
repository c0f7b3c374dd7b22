package provider

import (
	"sort"

	"trackhound/internal/core"
	"trackhound/pkg/fuzzy"
)

// Rank orders the candidates a source lists.
type Rank int

const (
	// RankFirst keeps source order.
	RankFirst Rank = iota
	// RankVersion prefers original studio versions by title.
	RankVersion
	// RankFuzzy opens each link and keeps the best page title above the fuzzy threshold.
	RankFuzzy
	// RankDuration orders by distance to the wanted duration, then by popularity.
	RankDuration
)

// order ranks listing candidates without fetching anything.
func order(rank Rank, cands []core.Candidate, meta *core.TrackMetadata) []core.Candidate {
	switch rank {
	case RankVersion:
		scored := fuzzy.FilterOriginalVersions(cands, meta)
		out := make([]core.Candidate, 0, len(scored))
		for _, c := range scored {
			out = append(out, c.Candidate)
		}
		return out
	case RankDuration:
		out := append([]core.Candidate(nil), cands...)
		target := 0
		if meta != nil {
			target = meta.DurationSeconds
		}
		distance := func(c core.Candidate) int {
			if target <= 0 || c.DurationSeconds <= 0 {
				return 0
			}
			d := c.DurationSeconds - target
			if d < 0 {
				d = -d
			}
			return d
		}
		sort.SliceStable(out, func(i, j int) bool {
			di, dj := distance(out[i]), distance(out[j])
			if di != dj {
				return di < dj
			}
			return out[i].Popularity > out[j].Popularity
		})
		return out
	default:
		return cands
	}
}
