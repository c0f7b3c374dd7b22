package musiclink

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"trackhound/internal/core"
)

// SoundCloudOEmbedURL is the SoundCloud oEmbed API endpoint.
const SoundCloudOEmbedURL = "https://soundcloud.com/oembed"

// SoundCloudResolver resolves SoundCloud links to track information.
type SoundCloudResolver struct {
	client   *http.Client
	endpoint string
}

func NewSoundCloudResolver(client *http.Client) *SoundCloudResolver {
	return &SoundCloudResolver{client: client, endpoint: SoundCloudOEmbedURL}
}

func (r *SoundCloudResolver) CanResolve(rawURL string) bool {
	switch hostOf(rawURL) {
	case "soundcloud.com", "www.soundcloud.com", "m.soundcloud.com", "on.soundcloud.com":
		return true
	}
	return false
}

func (r *SoundCloudResolver) Resolve(ctx context.Context, rawURL string) (*core.TrackMetadata, error) {
	doc, err := fetchOEmbed(ctx, r.client, r.endpoint, rawURL, "SoundCloud")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch oEmbed data: %w", err)
	}
	return track(r.parseTrackInfo(doc.Get("title").String(), doc.Get("author_name").String()))
}

// parseTrackInfo splits SoundCloud's "Title by Artist" oEmbed title, falling
// back to the uploader as the artist.
func (r *SoundCloudResolver) parseTrackInfo(oembedTitle, author string) (title, artist string) {
	title, artist = splitTitle(oembedTitle, "", " by ")
	if artist == "" {
		artist = strings.TrimSpace(author)
	}
	return title, artist
}
