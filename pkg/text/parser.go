// Package text classifies chat messages into Spotify links, other music links and free text.
package text

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"trackhound/internal/core"
)

const (
	// URLResolveTimeout bounds following a short link to its destination
	URLResolveTimeout = 10 * time.Second
	// MaxRedirects is how many hops a short link may take
	MaxRedirects = 10
	// ReadBufferSize is how much of a landing page is scanned for a Spotify link
	ReadBufferSize = 64 << 10
)

// Spotify link kinds.
const (
	KindTrack    = "track"
	KindAlbum    = "album"
	KindPlaylist = "playlist"
)

var (
	urlRegex        = regexp.MustCompile(`https?://\S+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	spotifyURIRegex = regexp.MustCompile(`spotify:(track|album|playlist):([A-Za-z0-9]+)`)
	spotifyPath     = regexp.MustCompile(`^/(?:intl-[a-z]{2}(?:-[A-Za-z]{2})?/)?(track|album|playlist)/([A-Za-z0-9]+)`)

	spotifyShortHosts = map[string]bool{
		"spotify.link":     true,
		"spoti.fi":         true,
		"spotify.app.link": true,
	}

	musicDomains = map[string]bool{
		"youtube.com":       true,
		"youtu.be":          true,
		"music.youtube.com": true,
		"soundcloud.com":    true,
		"on.soundcloud.com": true,
		"music.apple.com":   true,
		"tidal.com":         true,
		"listen.tidal.com":  true,
		"beatport.com":      true,
	}
)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// ParseMessage normalizes text, extracts its links and classifies it. A
// spotify: URI is reported as the first URL of the message.
func (p *Parser) ParseMessage(text string) core.InputMessage {
	text = p.normalizeText(text)
	urls := p.extractURLs(text)
	if uri := spotifyURIRegex.FindString(text); uri != "" {
		urls = append([]string{uri}, urls...)
	}

	return core.InputMessage{
		Type: p.classifyMessage(urls),
		Text: text,
		URLs: urls,
	}
}

func (p *Parser) normalizeText(text string) string {
	text = norm.NFKC.String(text)
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

func (p *Parser) extractURLs(text string) []string {
	var urls []string
	for _, match := range urlRegex.FindAllString(text, -1) {
		if u := p.cleanURL(match); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// cleanURL drops trailing punctuation and tracking parameters.
func (p *Parser) cleanURL(rawURL string) string {
	rawURL = strings.TrimRight(rawURL, ".,!?;)")

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}

	q := u.Query()
	for _, param := range []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "si"} {
		q.Del(param)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func (p *Parser) classifyMessage(urls []string) core.MessageType {
	for _, u := range urls {
		if IsSpotifyLink(u) {
			return core.MessageTypeSpotifyLink
		}
	}
	for _, u := range urls {
		if IsMusicLink(u) {
			return core.MessageTypeNonSpotifyLink
		}
	}
	return core.MessageTypeFreeText
}

// IsSpotifyLink reports whether raw is a Spotify track, album or playlist
// link, a spotify: URI or a Spotify short link.
func IsSpotifyLink(raw string) bool {
	if _, _, ok := SpotifyID(raw); ok {
		return true
	}
	return IsSpotifyShortLink(raw)
}

// IsSpotifyShortLink reports whether raw points at a Spotify link shortener.
func IsSpotifyShortLink(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return spotifyShortHosts[strings.ToLower(u.Hostname())]
}

// SpotifyID extracts the kind (track, album or playlist) and id from a
// Spotify URL or URI.
func SpotifyID(raw string) (kind, id string, ok bool) {
	raw = strings.TrimSpace(raw)
	if m := spotifyURIRegex.FindStringSubmatch(raw); m != nil && strings.HasPrefix(raw, "spotify:") {
		return m[1], m[2], true
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", false
	}
	host := strings.ToLower(u.Hostname())
	if host != "open.spotify.com" && host != "play.spotify.com" && host != "spotify.com" {
		return "", "", false
	}
	if m := spotifyPath.FindStringSubmatch(u.Path); m != nil {
		return m[1], m[2], true
	}
	return "", "", false
}

// IsMusicLink reports whether raw points at a supported non-Spotify music service.
func IsMusicLink(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	if strings.HasPrefix(host, "music.amazon.") {
		return true
	}
	return musicDomains[host]
}
