package provider

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"trackhound/internal/core"
)

var audioBody = strings.Repeat("A", 20000)

func TestScrape_DirectLink(t *testing.T) {
	s := newSite(t, map[string]string{
		"/search": `<html><body>
			<a href="/about">About</a>
			<a href="/files/song.mp3">Artist - Song (Original Mix)</a>
		</body></html>`,
		"/files/song.mp3": audioBody,
	})

	p := &Scrape{
		Label:     "Test",
		SearchURL: s.url("/search?q={q}"),
		Links:     LinkRule{Pattern: mp3Link},
		Deps:      testDeps(t, nil),
	}
	req := testRequest(t, "Song Artist", &core.TrackMetadata{Name: "Song", Artist: "Artist"})

	out := p.SearchAndDownload(context.Background(), req)
	assertFound(t, out, req.Dir)
	if out.File.SourceURL != s.url("/files/song.mp3") {
		t.Errorf("SourceURL = %q", out.File.SourceURL)
	}
	if !strings.HasSuffix(out.File.Path, "Artist_-_Song_(Original_Mix).mp3") {
		t.Errorf("Path = %q, want the sanitized link title", out.File.Path)
	}
	if out.File.Size != int64(len(audioBody)) {
		t.Errorf("Size = %d, want %d", out.File.Size, len(audioBody))
	}
}

func TestScrape_NoLinksIsNotFound(t *testing.T) {
	s := newSite(t, map[string]string{"/search": `<a href="/about">About</a>`})
	p := &Scrape{Label: "Test", SearchURL: s.url("/search?q={q}"), Links: LinkRule{Pattern: mp3Link}, Deps: testDeps(t, nil)}

	if out := p.SearchAndDownload(context.Background(), testRequest(t, "q", nil)); out.Status != core.StatusNotFound {
		t.Errorf("status = %v, want not_found", out.Status)
	}
}

func TestScrape_SearchErrorIsTransient(t *testing.T) {
	s := newSite(t, map[string]string{})
	p := &Scrape{Label: "Test", SearchURL: s.url("/search?q={q}"), Deps: testDeps(t, nil)}

	out := p.SearchAndDownload(context.Background(), testRequest(t, "q", nil))
	if out.Status != core.StatusTransient || out.Err == nil {
		t.Errorf("outcome = %+v, want transient with error", out)
	}
}

func TestScrape_SkipsBlocklistedLinks(t *testing.T) {
	s := newSite(t, map[string]string{
		"/search":   `<a href="/bad.mp3">bad</a><a href="/good.mp3">good</a>`,
		"/bad.mp3":  audioBody,
		"/good.mp3": audioBody,
	})
	deps := testDeps(t, nil)
	deps.Blocklist = setFilter{s.url("/bad.mp3"): true}

	p := &Scrape{Label: "Test", SearchURL: s.url("/search?q={q}"), Links: LinkRule{Pattern: mp3Link}, Deps: deps}
	req := testRequest(t, "q", nil)

	out := p.SearchAndDownload(context.Background(), req)
	assertFound(t, out, req.Dir)
	if out.File.SourceURL != s.url("/good.mp3") {
		t.Errorf("SourceURL = %q, want the non-blocked link", out.File.SourceURL)
	}
	if s.hitCount("/bad.mp3") != 0 {
		t.Error("blocked source was fetched")
	}
}

func TestScrape_FollowsDetailPage(t *testing.T) {
	s := newSite(t, map[string]string{
		"/search":        `<a href="/Track/42/song">Song</a>`,
		"/Track/42/song": `<div data-url="{base}/media/42.mp3">play</div>`,
		"/media/42.mp3":  audioBody,
	})

	p := &Scrape{
		Label:     "Detail",
		SearchURL: s.url("/search?q={q}"),
		Links:     LinkRule{Pattern: regexp.MustCompile(`/Track/\d+/`)},
		Detail:    &LinkRule{Selector: "[data-url]", Attr: "data-url", Pattern: mp3Link},
		Deps:      testDeps(t, nil),
	}
	req := testRequest(t, "song", nil)

	out := p.SearchAndDownload(context.Background(), req)
	assertFound(t, out, req.Dir)
	if out.File.SourceURL != s.url("/media/42.mp3") {
		t.Errorf("SourceURL = %q", out.File.SourceURL)
	}
}

func TestScrape_UnwrapsRedirectLinks(t *testing.T) {
	s := newSite(t, map[string]string{
		"/html":             `<a class="result__a" href="/l/?uddg={base}%2Fdirect%2Ftrack.mp3&rut=x">hit</a>`,
		"/direct/track.mp3": audioBody,
	})

	p := &Scrape{
		Label:     "DDG",
		SearchURL: s.url("/html?q={q}+mp3+download"),
		Links:     LinkRule{Unwrap: "uddg", Pattern: mp3Link},
		Deps:      testDeps(t, nil),
	}
	req := testRequest(t, "track", nil)

	out := p.SearchAndDownload(context.Background(), req)
	assertFound(t, out, req.Dir)
	if out.File.SourceURL != s.url("/direct/track.mp3") {
		t.Errorf("SourceURL = %q", out.File.SourceURL)
	}
}

func TestScrape_TriesNextLinkAfterFailure(t *testing.T) {
	s := newSite(t, map[string]string{
		"/search": `<a href="/gone.mp3">1</a><a href="/ok.mp3">2</a>`,
		"/ok.mp3": audioBody,
	})

	p := &Scrape{Label: "Test", SearchURL: s.url("/search?q={q}"), Links: LinkRule{Pattern: mp3Link}, Tries: 3, Deps: testDeps(t, nil)}
	req := testRequest(t, "q", nil)

	out := p.SearchAndDownload(context.Background(), req)
	assertFound(t, out, req.Dir)
	if out.File.SourceURL != s.url("/ok.mp3") {
		t.Errorf("SourceURL = %q", out.File.SourceURL)
	}
}

func TestScrape_FuzzyRank(t *testing.T) {
	s := newSite(t, map[string]string{
		"/search": `<a href="/audio1">a</a><a href="/audio2">b</a>`,
		"/audio1": `<html><head><title>Someone Else - Another Tune</title></head></html>`,
		"/audio2": `<html><head><title>Daft Punk - Get Lucky | Deezer</title></head></html>`,
	})
	runner := &stubRunner{}

	p := &Scrape{
		Label:          "Fuzzy",
		SearchURL:      s.url("/search?q={q}"),
		Links:          LinkRule{Pattern: regexp.MustCompile(`/audio\d$`)},
		Rank:           RankFuzzy,
		TitleSeparator: " - ",
		TitleSuffix:    " | Deezer",
		Fetch:          FetchExtractor,
		Deps:           testDeps(t, runner),
	}

	t.Run("best title above threshold is downloaded", func(t *testing.T) {
		req := testRequest(t, "Get Lucky Daft Punk", &core.TrackMetadata{Name: "Get Lucky", Artist: "Daft Punk"})
		out := p.SearchAndDownload(context.Background(), req)
		assertFound(t, out, req.Dir)

		_, downloaded := runner.calls()
		if len(downloaded) != 1 || downloaded[0] != s.url("/audio2") {
			t.Errorf("downloaded = %v, want only the matching page", downloaded)
		}
	})

	t.Run("nothing above threshold is not found", func(t *testing.T) {
		req := testRequest(t, "Bohemian Rhapsody Queen", &core.TrackMetadata{Name: "Bohemian Rhapsody", Artist: "Queen"})
		if out := p.SearchAndDownload(context.Background(), req); out.Status != core.StatusNotFound {
			t.Errorf("status = %v, want not_found", out.Status)
		}
	})
}

func TestScrape_VersionRank(t *testing.T) {
	s := newSite(t, map[string]string{
		"/search": `<a href="https://artist.bandcamp.example/track/remix">Song (Remix)</a>
			<a href="https://artist.bandcamp.example/track/song">Song</a>`,
	})
	runner := &stubRunner{}

	p := &Scrape{
		Label:     "Bandcamp",
		SearchURL: s.url("/search?q={q}"),
		Links:     LinkRule{Pattern: regexp.MustCompile(`/track/`)},
		Rank:      RankVersion,
		Fetch:     FetchExtractor,
		Deps:      testDeps(t, runner),
	}
	req := testRequest(t, "Song Artist", &core.TrackMetadata{Name: "Song", Artist: "Artist"})

	assertFound(t, p.SearchAndDownload(context.Background(), req), req.Dir)
	if _, downloaded := runner.calls(); downloaded[0] != "https://artist.bandcamp.example/track/song" {
		t.Errorf("downloaded %v, want the original version first", downloaded)
	}
}

func TestFuzzyLimit(t *testing.T) {
	full := &core.TrackMetadata{Name: "a", Artist: "b"}
	if got := fuzzyLimit(120, full); got != 120 {
		t.Errorf("with artist = %d, want 120", got)
	}
	if got := fuzzyLimit(120, nil); got != 60 {
		t.Errorf("without metadata = %d, want 60", got)
	}
}
