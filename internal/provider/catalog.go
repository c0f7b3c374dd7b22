package provider

import (
	"net/url"
	"regexp"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trackhound/internal/acquire"
	"trackhound/internal/core"
)

const extractorTimeout = 90 * time.Second

var (
	mp3Link = regexp.MustCompile(`(?i)\.mp3(?:$|[?#])`)
	anyMP3  = regexp.MustCompile(`(?i)^https://.+\.mp3(?:$|[?#])`)
)

// youtubeUserAgents are the client identities the primary YouTube stage rotates through.
var youtubeUserAgents = []string{
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 13; SM-G991B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/121.0",
}

// Catalog builds the cascade in its fixed order. Disabled providers and
// providers whose credentials are missing are left out.
func Catalog(cfg *core.Config, deps *Deps) []acquire.Entry {
	p := cfg.Providers
	logger := deps.logger()

	var entries []acquire.Entry
	add := func(provider core.Provider, delay time.Duration) {
		if cfg.IsProviderDisabled(provider.Name()) {
			logger.Info("Provider disabled by configuration", zap.String("provider", provider.Name()))
			return
		}
		entries = append(entries, acquire.Entry{Provider: provider, DelayAfter: delay})
	}
	skip := func(name, reason string) {
		logger.Info("Provider skipped", zap.String("provider", name), zap.String("reason", reason))
	}

	add(&API{
		Label:      "JioSaavn",
		SearchURL:  "https://saavn.me/search/songs?query={q}",
		Timeout:    30 * time.Second,
		Results:    []string{"data.results", "data"},
		ID:         "id",
		DetailURL:  "https://saavn.me/songs?id={id}",
		DetailItem: []string{"data.0", "data"},
		MediaPaths: []string{"downloadUrl.#.link", "downloadUrl.#.url", "downloadUrl", "moreInfo.download_links.#.link"},
		TitlePaths: []string{"name", "title", "song"},
		Deps:       deps,
	}, 500*time.Millisecond)

	add(&Variants{
		Label: "EnhancedSoundCloud",
		Provider: &Extractor{
			Label:   "EnhancedSoundCloud",
			Targets: []string{"scsearch10:{q}"},
			Rank:    RankVersion,
			Timeout: extractorTimeout,
			Deps:    deps,
		},
		Enhance: true,
		Deps:    deps,
	}, 300*time.Millisecond)

	add(&Variants{
		Label: "SoundCloud",
		Provider: &Scrape{
			Label:     "SoundCloud",
			SearchURL: "https://soundcloud.com/search/sounds?q={q}",
			Timeout:   extractorTimeout,
			Links: LinkRule{
				Pattern: regexp.MustCompile(`^https://soundcloud\.com/[^/]+/[^/?#]+$`),
				Skip:    []string{"/sets/", "/popular/", "/search", "/you/"},
				Limit:   3,
			},
			Fetch: FetchExtractor,
			Tries: 3,
			Deps:  deps,
		},
		Deps: deps,
	}, 400*time.Millisecond)

	if p.LastFMAPIKey != "" {
		add(&Lookup{
			Label:   "AlternativeMusic",
			URL:     "https://ws.audioscrobbler.com/2.0/?method=track.search&format=json&limit=5&api_key=" + url.QueryEscape(p.LastFMAPIKey) + "&track={q}",
			Hits:    []string{"results.trackmatches.track"},
			Title:   "name",
			Artist:  "artist",
			Search:  "ytsearch5:{q} official audio",
			Options: DownloadOptions{PlayerClients: []string{"ios", "android_music"}},
			Timeout: extractorTimeout,
			Deps:    deps,
		}, 0)
	} else {
		skip("AlternativeMusic", "no Last.fm API key")
	}

	add(&Scrape{
		Label:     "DuckDuckGo",
		SearchURL: "https://html.duckduckgo.com/html/?q={q}+mp3+download",
		Timeout:   10 * time.Second,
		Links:     LinkRule{Unwrap: "uddg", Pattern: mp3Link},
		Deps:      deps,
	}, 0)

	add(&Scrape{
		Label:     "PleerNet",
		SearchURL: "https://pleer.net/search?q={q}",
		Timeout:   12 * time.Second,
		Links:     LinkRule{Selector: "a.track__download-btn", Pattern: mp3Link},
		Deps:      deps,
	}, 200*time.Millisecond)

	add(&Scrape{
		Label:      "MP3Juices",
		SearchURL:  "https://www.mp3juices.cc/search/{q}",
		PathEscape: true,
		Timeout:    15 * time.Second,
		Links:      LinkRule{Pattern: mp3Link},
		Tries:      3,
		Deps:       deps,
	}, 200*time.Millisecond)

	add(&Scrape{
		Label:     "Zaycev",
		SearchURL: "https://zaycev.net/search.html?query_search={q}",
		Timeout:   15 * time.Second,
		Links:     LinkRule{Pattern: mp3Link},
		Deps:      deps,
	}, 0)

	add(&Scrape{
		Label:     "Myzuka",
		SearchURL: "https://myzuka.fm/Search.aspx?Text={q}",
		Timeout:   15 * time.Second,
		Links:     LinkRule{Pattern: regexp.MustCompile(`^https://myzuka\.fm/Track/\d+/`)},
		Detail:    &LinkRule{Selector: "[data-url]", Attr: "data-url", Pattern: mp3Link},
		Deps:      deps,
	}, 0)

	add(&Scrape{
		Label:     "Bandcamp",
		SearchURL: "https://bandcamp.com/search?q={q}",
		Timeout:   extractorTimeout,
		Links:     LinkRule{Pattern: regexp.MustCompile(`^https://[^/]+\.bandcamp\.com/track/`)},
		Rank:      RankVersion,
		Fetch:     FetchExtractor,
		Deps:      deps,
	}, 0)

	add(&API{
		Label: "ArchiveOrg",
		SearchURL: "https://archive.org/advancedsearch.php?q=collection%3Aaudio+AND+title%3A%28{q}%29" +
			"&fl%5B%5D=identifier&fl%5B%5D=title&fl%5B%5D=creator&rows=5&output=json",
		Timeout:    15 * time.Second,
		Results:    []string{"response.docs"},
		ID:         "identifier",
		DetailURL:  "https://archive.org/details/{id}",
		PageLinks:  &LinkRule{Pattern: anyMP3},
		TitlePaths: []string{"title"},
		Deps:       deps,
	}, 0)

	add(&Scrape{
		Label:     "FreeMusicArchive",
		SearchURL: "https://freemusicarchive.org/search?adv=1&music-filter-genre=all&music-filter-artist={q}",
		Timeout:   15 * time.Second,
		Links:     LinkRule{Pattern: regexp.MustCompile(`^https://freemusicarchive\.org/music/[^/]+/[^/]+/`)},
		Detail:    &LinkRule{Pattern: anyMP3},
		Deps:      deps,
	}, 0)

	if p.JamendoClientID != "" {
		add(&API{
			Label:      "Jamendo",
			SearchURL:  "https://api.jamendo.com/v3.0/tracks/?client_id=" + url.QueryEscape(p.JamendoClientID) + "&format=json&limit=5&include=musicinfo&search={q}",
			Timeout:    15 * time.Second,
			Results:    []string{"results"},
			MediaPaths: []string{"audiodownload", "audio"},
			TitlePaths: []string{"name"},
			Deps:       deps,
		}, 0)
	} else {
		skip("Jamendo", "no Jamendo client id")
	}

	add(&Scrape{
		Label:     "Mixcloud",
		SearchURL: "https://www.mixcloud.com/search/?q={q}",
		Timeout:   extractorTimeout,
		Links: LinkRule{
			Pattern: regexp.MustCompile(`^https://www\.mixcloud\.com/[^/]+/[^/]+/$`),
			Skip:    []string{"/search/", "/discover/", "/categories/"},
		},
		Fetch: FetchExtractor,
		Deps:  deps,
	}, 0)

	add(&Scrape{
		Label:          "VK",
		SearchURL:      "https://vk.com/search?c%5Bq%5D={q}&c%5Bsection%5D=audio",
		Timeout:        extractorTimeout,
		Links:          LinkRule{Pattern: regexp.MustCompile(`^https://vk\.com/audio`), Limit: 5},
		Rank:           RankFuzzy,
		TitleSeparator: " - ",
		Fetch:          FetchExtractor,
		Deps:           deps,
	}, 0)

	add(&Scrape{
		Label:          "Yandex",
		SearchURL:      "https://music.yandex.ru/search?text={q}",
		Timeout:        extractorTimeout,
		Links:          LinkRule{Pattern: regexp.MustCompile(`^https://music\.yandex\.ru/.*track/\d+`), Limit: 5},
		Rank:           RankFuzzy,
		TitleSeparator: " — ",
		Fetch:          FetchExtractor,
		Deps:           deps,
	}, 0)

	add(&Scrape{
		Label:          "Deezer",
		SearchURL:      "https://www.deezer.com/search/{q}",
		PathEscape:     true,
		Timeout:        extractorTimeout,
		Links:          LinkRule{Pattern: regexp.MustCompile(`^https://www\.deezer\.com/(?:[a-z]{2}/)?track/\d+`), Limit: 5},
		Rank:           RankFuzzy,
		TitleSeparator: " - ",
		TitleSuffix:    " | Deezer",
		Fetch:          FetchExtractor,
		Deps:           deps,
	}, 0)

	add(&Scrape{
		Label:     "Audiomack",
		SearchURL: "https://audiomack.com/search?q={q}",
		Timeout:   extractorTimeout,
		Links:     LinkRule{Pattern: regexp.MustCompile(`^https://audiomack\.com/[\w-]+/song/[\w-]+`), Limit: 3},
		Fetch:     FetchExtractor,
		Tries:     3,
		Deps:      deps,
	}, 0)

	add(&Scrape{
		Label:     "Musopen",
		SearchURL: "https://musopen.org/music/search/?q={q}",
		Timeout:   20 * time.Second,
		Links: LinkRule{
			Pattern: regexp.MustCompile(`^https://musopen\.org/music/[\w-]+/`),
			Skip:    []string{"/music/search"},
			Limit:   3,
		},
		Detail: &LinkRule{Pattern: regexp.MustCompile(`^https://cdn\.musopen\.org/.+\.mp3`)},
		Tries:  3,
		Deps:   deps,
	}, 0)

	add(&Extractor{
		Label: "AlternativeYouTube",
		Targets: []string{
			"ytsearch3:{q} official",
			"ytsearch3:{q} audio",
			"ytsearch3:{q} music",
			"ytsearch3:{q} song",
		},
		Options: DownloadOptions{
			Format:        "worstaudio/worst",
			PlayerClients: []string{"tv_embedded", "tv", "ios"},
			UserAgent:     "Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1",
		},
		Timeout: extractorTimeout,
		Deps:    deps,
	}, 0)

	add(&Extractor{
		Label:   "YouTubeMusic",
		Targets: []string{"https://music.youtube.com/search?q={q}"},
		Rank:    RankDuration,
		Timeout: extractorTimeout,
		Deps:    deps,
	}, 0)

	add(&Staged{
		Label: "YouTube",
		Stages: []core.Provider{
			&Extractor{
				Label:   "YouTube/primary",
				Targets: []string{"ytsearch5:{q}"},
				Rank:    RankDuration,
				Options: DownloadOptions{
					PlayerClients:    []string{"ios", "android_music", "android", "web"},
					UserAgents:       youtubeUserAgents,
					GeoBypassCountry: "US",
					SleepInterval:    time.Second,
					MaxSleepInterval: 3 * time.Second,
				},
				Timeout: extractorTimeout,
				Deps:    deps,
			},
			&Extractor{
				Label:   "YouTube/simplified",
				Targets: []string{"ytsearch3:{q}"},
				Timeout: extractorTimeout,
				Deps:    deps,
			},
			&Minimal{
				Label:   "YouTube/minimal",
				Target:  "ytsearch1:{q}",
				Timeout: extractorTimeout,
				Deps:    deps,
			},
		},
		Deps: deps,
	}, 0)

	add(&Stream{
		Label:   "YouTubeStream",
		Target:  "ytsearch5:{q}",
		Timeout: extractorTimeout,
		Deps:    deps,
	}, 0)

	add(&Scrape{
		Label:      "RedMp3",
		SearchURL:  "https://redmp3.cc/search/{q}/",
		PathEscape: true,
		Timeout:    15 * time.Second,
		Links:      LinkRule{Pattern: regexp.MustCompile(`^https://redmp3\.cc/\d+-[a-zA-Z0-9-]+\.html`)},
		Detail:     &LinkRule{Selector: "[src]", Attr: "src", Pattern: regexp.MustCompile(`^https://files\.redmp3\.cc/.+\.mp3`)},
		Deps:       deps,
	}, 0)

	add(&Scrape{
		Label:     "Mp3Skulls",
		SearchURL: "https://mp3skulls.info/mg/search.html?wm={q}",
		Timeout:   12 * time.Second,
		Links:     LinkRule{Pattern: mp3Link},
		Deps:      deps,
	}, 0)

	add(&Scrape{
		Label:     "Music7s",
		SearchURL: "https://music7s.cc/search?q={q}",
		Timeout:   13 * time.Second,
		Links:     LinkRule{Pattern: mp3Link},
		Deps:      deps,
	}, 0)

	add(&Scrape{
		Label:      "Mp3Download",
		SearchURL:  "https://mp3download.to/search/{q}",
		PathEscape: true,
		Timeout:    15 * time.Second,
		Links:      LinkRule{Pattern: regexp.MustCompile(`^https://mp3download\.to/download/`)},
		Detail:     &LinkRule{Pattern: anyMP3},
		Deps:       deps,
	}, 0)

	add(&Scrape{
		Label:      "Beemp3s",
		SearchURL:  "https://beemp3s.net/search/{q}",
		PathEscape: true,
		Timeout:    12 * time.Second,
		Links:      LinkRule{Pattern: mp3Link},
		Deps:       deps,
	}, 0)

	add(&Scrape{
		Label:     "VkMusicFun",
		SearchURL: "https://vkmusic.fun/search?q={q}",
		Timeout:   15 * time.Second,
		Links:     LinkRule{Pattern: regexp.MustCompile(`^https://vkmusic\.fun/track/`)},
		Detail:    &LinkRule{Pattern: anyMP3},
		Deps:      deps,
	}, 0)

	if p.GeniusToken != "" {
		add(&Lookup{
			Label:   "Genius",
			URL:     "https://api.genius.com/search?q={q}",
			Headers: map[string]string{"Authorization": "Bearer " + p.GeniusToken},
			Hits:    []string{"response.hits"},
			Title:   "result.title",
			Artist:  "result.primary_artist.name",
			Search:  "ytsearch1:{q}",
			Timeout: extractorTimeout,
			Deps:    deps,
		}, 0)
	} else {
		skip("Genius", "no Genius access token")
	}

	add(&Lookup{
		Label:   "MusicBrainz",
		URL:     "https://musicbrainz.org/ws/2/recording?fmt=json&limit=5&query={q}",
		Headers: map[string]string{"User-Agent": p.MusicBrainzAgent, "Accept": "application/json"},
		Limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		Hits:    []string{"recordings"},
		Title:   "title",
		Artist:  "artist-credit.0.name",
		Search:  "ytsearch1:{q}",
		Timeout: extractorTimeout,
		Deps:    deps,
	}, 0)

	if p.DiscogsToken != "" {
		add(&Lookup{
			Label:          "Discogs",
			URL:            "https://api.discogs.com/database/search?type=release&q={q}",
			Headers:        map[string]string{"Authorization": "Discogs token=" + p.DiscogsToken},
			Hits:           []string{"results"},
			Title:          "title",
			TitleSeparator: " - ",
			Search:         "ytsearch1:{q}",
			Timeout:        extractorTimeout,
			Deps:           deps,
		}, 0)
	} else {
		skip("Discogs", "no Discogs token")
	}

	return entries
}
