package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"trackhound/internal/core"
)

// YouTubeOEmbedURL is the YouTube oEmbed API endpoint.
const YouTubeOEmbedURL = "https://www.youtube.com/oembed"

var (
	videoMarkers = regexp.MustCompile(`(?i)\s*[(\[](?:official\s+(?:music\s+)?(?:video|audio)|lyrics?(?:\s+video)?|visualizer|hd|4k)[)\]]`)
	camelCase    = regexp.MustCompile(`([a-z])([A-Z])`)
)

// YouTubeResolver resolves YouTube and YouTube Music links through oEmbed.
type YouTubeResolver struct {
	client   *http.Client
	endpoint string
}

func NewYouTubeResolver(client *http.Client) *YouTubeResolver {
	return &YouTubeResolver{client: client, endpoint: YouTubeOEmbedURL}
}

func (r *YouTubeResolver) CanResolve(rawURL string) bool {
	switch hostOf(rawURL) {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be":
		return true
	}
	return false
}

func (r *YouTubeResolver) Resolve(ctx context.Context, rawURL string) (*core.TrackMetadata, error) {
	videoID, err := r.extractVideoID(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract video ID: %w", err)
	}

	doc, err := fetchOEmbed(ctx, r.client, r.endpoint, "https://www.youtube.com/watch?v="+videoID, "YouTube")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch oEmbed data: %w", err)
	}

	return track(r.parseTrackInfo(doc.Get("title").String(), doc.Get("author_name").String()))
}

func (r *YouTubeResolver) extractVideoID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	if strings.EqualFold(u.Hostname(), "youtu.be") {
		if id := strings.Trim(u.Path, "/"); id != "" {
			return id, nil
		}
		return "", errors.New("no video ID in youtu.be URL")
	}
	if id := u.Query().Get("v"); id != "" {
		return id, nil
	}
	if rest, ok := strings.CutPrefix(u.Path, "/shorts/"); ok && rest != "" {
		return strings.Trim(rest, "/"), nil
	}
	return "", errors.New("no video ID in YouTube URL")
}

// parseTrackInfo derives title and artist from a video title and channel name.
// "Artist - Title" titles are split; otherwise the channel names the artist.
func (r *YouTubeResolver) parseTrackInfo(videoTitle, channel string) (title, artist string) {
	title = strings.TrimSpace(videoMarkers.ReplaceAllString(videoTitle, ""))

	if before, after, ok := strings.Cut(title, " - "); ok {
		return strings.TrimSpace(after), strings.TrimSpace(before)
	}
	return title, r.channelArtist(channel)
}

// channelArtist strips the decorations YouTube adds to artist channel names.
func (r *YouTubeResolver) channelArtist(channel string) string {
	if name, ok := strings.CutSuffix(channel, "VEVO"); ok {
		return camelCase.ReplaceAllString(name, "$1 $2")
	}
	if name, ok := strings.CutSuffix(channel, " - Topic"); ok {
		return name
	}
	return channel
}
