package fuzzy

import (
	"reflect"
	"testing"

	"trackhound/internal/core"
)

func TestFilterOriginalVersions_PrefersOfficial(t *testing.T) {
	cands := []core.Candidate{
		{SourceURL: "slowed", Title: "Song (slowed)"},
		{SourceURL: "official", Title: "Song (Official Audio)"},
	}

	got := FilterOriginalVersions(cands, nil)
	if len(got) != 2 {
		t.Fatalf("FilterOriginalVersions() returned %d candidates, want 2", len(got))
	}
	if got[0].SourceURL != "official" {
		t.Errorf("first candidate = %q, want official", got[0].SourceURL)
	}
	if gap := got[0].Score - got[1].Score; gap < 70 {
		t.Errorf("official vs slowed gap = %d, want >= 70", gap)
	}
}

func TestFilterOriginalVersions_DropsNonPositive(t *testing.T) {
	cands := []core.Candidate{
		{SourceURL: "bad", Title: "Song (Super Slowed + Reverb) Nightcore Remix"},
		{SourceURL: "worse", Title: "Song slowed reverb 8d bass boosted karaoke"},
		{SourceURL: "plain", Title: "Song"},
	}

	got := FilterOriginalVersions(cands, nil)
	for _, sc := range got {
		if sc.Score <= 0 {
			t.Errorf("candidate %q returned with score %d", sc.SourceURL, sc.Score)
		}
	}
	if len(got) != 1 || got[0].SourceURL != "plain" {
		t.Errorf("FilterOriginalVersions() = %+v, want only the plain candidate", got)
	}
}

func TestVersionScore(t *testing.T) {
	target := &core.TrackMetadata{Name: "Song", DurationSeconds: 200}

	tests := []struct {
		name string
		cand core.Candidate
		want int
	}{
		{"plain", core.Candidate{Title: "Alpha"}, 100},
		{"exact duration", core.Candidate{Title: "Alpha", DurationSeconds: 203}, 125},
		{"close duration", core.Candidate{Title: "Alpha", DurationSeconds: 210}, 110},
		{"wrong duration", core.Candidate{Title: "Alpha", DurationSeconds: 260}, 85},
		{"unknown duration", core.Candidate{Title: "Alpha", DurationSeconds: 0}, 100},
		{"viral", core.Candidate{Title: "Alpha", Popularity: 2_000_000}, 115},
		{"popular", core.Candidate{Title: "Alpha", Popularity: 500_000}, 110},
		{"slowed", core.Candidate{Title: "Alpha Slowed"}, 20},
		{"official studio", core.Candidate{Title: "Alpha Official Studio"}, 140},
		{"live cover", core.Candidate{Title: "Alpha live cover"}, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VersionScore(tt.cand, target); got != tt.want {
				t.Errorf("VersionScore(%q) = %d, want %d", tt.cand.Title, got, tt.want)
			}
		})
	}
}

func TestFilterOriginalVersions_StableTies(t *testing.T) {
	cands := []core.Candidate{
		{SourceURL: "1", Title: "Alpha"},
		{SourceURL: "2", Title: "Beta"},
		{SourceURL: "3", Title: "Gamma Official"},
		{SourceURL: "4", Title: "Delta"},
	}

	got := FilterOriginalVersions(cands, nil)
	order := make([]string, 0, len(got))
	for _, sc := range got {
		order = append(order, sc.SourceURL)
	}

	want := []string{"3", "1", "2", "4"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestFilterOriginalVersions_Empty(t *testing.T) {
	if got := FilterOriginalVersions(nil, nil); len(got) != 0 {
		t.Errorf("FilterOriginalVersions(nil) = %v, want empty", got)
	}
}
