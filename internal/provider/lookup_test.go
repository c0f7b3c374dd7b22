package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"trackhound/internal/core"
)

func TestLookup_CanonicalSearch(t *testing.T) {
	s := newSite(t, map[string]string{
		"/ws/2/recording": `{"recordings":[
			{"title":"Completely Different","artist-credit":[{"name":"Nobody"}]},
			{"title":"Get Lucky (feat. Pharrell Williams)","artist-credit":[{"name":"Daft Punk"}]}
		]}`,
	})
	runner := &stubRunner{listings: map[string][]core.Candidate{
		"ytsearch1:Daft Punk Get Lucky (feat. Pharrell Williams)": {{SourceURL: "https://yt/lucky", Title: "Get Lucky"}},
	}}

	p := &Lookup{
		Label:  "MusicBrainz",
		URL:    s.url("/ws/2/recording?fmt=json&query={q}"),
		Hits:   []string{"recordings"},
		Title:  "title",
		Artist: "artist-credit.0.name",
		Search: "ytsearch1:{q}",
		Deps:   testDeps(t, runner),
	}
	req := testRequest(t, "get lucky daft punk", &core.TrackMetadata{Name: "Get Lucky", Artist: "Daft Punk"})

	out := p.SearchAndDownload(context.Background(), req)
	assertFound(t, out, req.Dir)
	if out.File.SourceURL != "https://yt/lucky" {
		t.Errorf("SourceURL = %q", out.File.SourceURL)
	}
}

func TestLookup_NoPlausibleHitIsNotFound(t *testing.T) {
	s := newSite(t, map[string]string{
		"/search": `{"response":{"hits":[{"result":{"title":"Other","primary_artist":{"name":"Someone"}}}]}}`,
	})
	runner := &stubRunner{}
	p := &Lookup{
		Label:  "Genius",
		URL:    s.url("/search?q={q}"),
		Hits:   []string{"response.hits"},
		Title:  "result.title",
		Artist: "result.primary_artist.name",
		Search: "ytsearch1:{q}",
		Deps:   testDeps(t, runner),
	}

	out := p.SearchAndDownload(context.Background(), testRequest(t, "q", &core.TrackMetadata{Name: "Get Lucky", Artist: "Daft Punk"}))
	if out.Status != core.StatusNotFound {
		t.Errorf("status = %v, want not_found", out.Status)
	}
	if listed, _ := runner.calls(); len(listed) != 0 {
		t.Errorf("extractor searched %v for an implausible hit", listed)
	}
}

func TestLookup_Pick(t *testing.T) {
	tests := []struct {
		name       string
		lookup     Lookup
		doc        string
		meta       *core.TrackMetadata
		wantArtist string
		wantTitle  string
		wantOK     bool
	}{
		{
			name:       "single object hit",
			lookup:     Lookup{Hits: []string{"results.trackmatches.track"}, Title: "name", Artist: "artist"},
			doc:        `{"results":{"trackmatches":{"track":{"name":"Song","artist":"Band"}}}}`,
			wantArtist: "Band",
			wantTitle:  "Song",
			wantOK:     true,
		},
		{
			name:       "title separator",
			lookup:     Lookup{Hits: []string{"results"}, Title: "title", TitleSeparator: " - "},
			doc:        `{"results":[{"title":"Band - Song"}]}`,
			meta:       &core.TrackMetadata{Name: "Song", Artist: "Band"},
			wantArtist: "Band",
			wantTitle:  "Song",
			wantOK:     true,
		},
		{
			name:   "no hits",
			lookup: Lookup{Hits: []string{"results"}, Title: "title"},
			doc:    `{"results":[]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artist, title, ok := tt.lookup.pick(gjson.Parse(tt.doc), tt.meta)
			if ok != tt.wantOK || artist != tt.wantArtist || title != tt.wantTitle {
				t.Errorf("pick() = (%q, %q, %v), want (%q, %q, %v)",
					artist, title, ok, tt.wantArtist, tt.wantTitle, tt.wantOK)
			}
		})
	}
}

func TestLookup_SendsHeadersAndWaitsForLimiter(t *testing.T) {
	var gotAuth, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	limiter := rate.NewLimiter(rate.Inf, 1)
	p := &Lookup{
		Label:   "Discogs",
		URL:     server.URL + "/database/search?q={q}",
		Headers: map[string]string{"Authorization": "Discogs token=abc", "User-Agent": "trackhound-test/1.0"},
		Limiter: limiter,
		Hits:    []string{"results"},
		Title:   "title",
		Search:  "ytsearch1:{q}",
		Deps:    testDeps(t, &stubRunner{}),
	}

	if out := p.SearchAndDownload(context.Background(), testRequest(t, "q", nil)); out.Status != core.StatusNotFound {
		t.Errorf("status = %v, want not_found", out.Status)
	}
	if gotAuth != "Discogs token=abc" || gotAgent != "trackhound-test/1.0" {
		t.Errorf("headers = %q / %q", gotAuth, gotAgent)
	}
}

func TestHitsAt(t *testing.T) {
	doc := gjson.Parse(`{"a":[1,2],"b":{"x":1}}`)
	if got := len(hitsAt(doc, []string{"missing", "a"})); got != 2 {
		t.Errorf("array hits = %d, want 2", got)
	}
	if got := len(hitsAt(doc, []string{"b"})); got != 1 {
		t.Errorf("object hits = %d, want 1", got)
	}
	if got := hitsAt(doc, []string{"missing"}); len(got) != 0 {
		t.Errorf("missing hits = %v, want none", got)
	}
}
