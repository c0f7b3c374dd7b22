package fuzzy

import (
	"reflect"
	"testing"

	"trackhound/internal/core"
)

func TestEnhanceSearchQuery(t *testing.T) {
	if got := EnhanceSearchQuery("query", nil); !reflect.DeepEqual(got, []string{"query"}) {
		t.Errorf("EnhanceSearchQuery() without metadata = %v", got)
	}

	meta := &core.TrackMetadata{Name: "Song", Artist: "Band"}
	want := []string{
		"query",
		`"Song" "Band" official`,
		`"Song" "Band" original`,
		`"Song" "Band" studio version`,
	}
	if got := EnhanceSearchQuery("query", meta); !reflect.DeepEqual(got, want) {
		t.Errorf("EnhanceSearchQuery() = %v, want %v", got, want)
	}

	if got := EnhanceSearchQuery("query", &core.TrackMetadata{Name: "Song"}); len(got) != 1 {
		t.Errorf("EnhanceSearchQuery() without artist = %v, want raw query only", got)
	}
}

func TestSearchVariants(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "separators",
			query: "Artist_Name,Song.Title",
			want: []string{
				"Artist_Name,Song.Title",
				"Artist Name,Song.Title",
				"Artist_Name Song.Title",
				"Artist_Name,Song Title",
			},
		},
		{
			name:  "long plain query",
			query: "one two three four five",
			want:  []string{"one two three four five", "one two three"},
		},
		{
			name:  "short query collapses to canonical",
			query: "hello world",
			want:  []string{"hello world"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SearchVariants(tt.query).All()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SearchVariants(%q).All() = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}
