// Package spotify resolves Spotify track, album and playlist links into track metadata.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"trackhound/internal/core"
	"trackhound/pkg/text"
)

const (
	// playlistPageSize is the largest playlist page the Web API serves
	playlistPageSize = 100
	shortLinkAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var (
	// ErrNotAuthenticated is returned when Resolve runs before Authenticate
	ErrNotAuthenticated = errors.New("spotify client not authenticated")
	// ErrUnsupportedLink is returned for links that are not a track, album or playlist
	ErrUnsupportedLink = errors.New("not a spotify track, album or playlist link")

	pageLinkRegex = regexp.MustCompile(`https://open\.spotify\.com/(?:track|album|playlist)/[A-Za-z0-9]+`)
)

// Client resolves Spotify links into track metadata using the client
// credentials flow. Results are cached per link target.
type Client struct {
	config    *core.SpotifyConfig
	maxTracks int
	logger    *zap.Logger
	client    *spotify.Client
	web       *http.Client
	cache     *expirable.LRU[string, []core.TrackMetadata]
}

// NewClient creates a resolver that returns at most maxTracks tracks per
// album or playlist.
func NewClient(config *core.SpotifyConfig, maxTracks int, logger *zap.Logger) *Client {
	size := config.CacheSize
	if size <= 0 {
		size = core.DefaultMetadataCacheSize
	}
	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = core.DefaultMetadataCacheTTL
	}
	if maxTracks <= 0 {
		maxTracks = core.DefaultMaxCollectionTracks
	}

	return &Client{
		config:    config,
		maxTracks: maxTracks,
		logger:    logger,
		web: &http.Client{
			Timeout: text.URLResolveTimeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= text.MaxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		cache: expirable.NewLRU[string, []core.TrackMetadata](size, nil, ttl),
	}
}

// Authenticate obtains an app token. The returned client refreshes it on expiry.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.config.ClientID == "" || c.config.ClientSecret == "" {
		return errors.New("spotify client id and secret are required")
	}

	creds := &clientcredentials.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := creds.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain spotify token: %w", err)
	}

	// The token source outlives ctx, it refreshes for the life of the process.
	source := oauth2.ReuseTokenSource(token, creds.TokenSource(context.Background()))
	c.client = spotify.New(oauth2.NewClient(context.Background(), source))
	c.logger.Info("Authenticated with Spotify")
	return nil
}

// CanResolve reports whether link is a Spotify link or URI.
func (c *Client) CanResolve(link string) bool {
	return text.IsSpotifyLink(link)
}

// Resolve returns the tracks behind a track, album or playlist link.
func (c *Client) Resolve(ctx context.Context, link string) ([]core.TrackMetadata, error) {
	if c.client == nil {
		return nil, ErrNotAuthenticated
	}

	if text.IsSpotifyShortLink(link) {
		resolved, err := c.resolveShortURL(ctx, link)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve short link: %w", err)
		}
		link = resolved
	}

	kind, id, ok := text.SpotifyID(link)
	if !ok {
		return nil, ErrUnsupportedLink
	}

	key := kind + ":" + id
	if tracks, ok := c.cache.Get(key); ok {
		return tracks, nil
	}

	var (
		tracks []core.TrackMetadata
		err    error
	)
	switch kind {
	case text.KindTrack:
		tracks, err = c.track(ctx, spotify.ID(id))
	case text.KindAlbum:
		tracks, err = c.album(ctx, spotify.ID(id))
	case text.KindPlaylist:
		tracks, err = c.playlist(ctx, spotify.ID(id))
	}
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Resolved Spotify link",
		zap.String("kind", kind),
		zap.String("id", id),
		zap.Int("tracks", len(tracks)))
	c.cache.Add(key, tracks)
	return tracks, nil
}

func (c *Client) track(ctx context.Context, id spotify.ID) ([]core.TrackMetadata, error) {
	track, err := c.client.GetTrack(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get track: %w", err)
	}
	return []core.TrackMetadata{convertTrack(&track.SimpleTrack, track.Album.Name)}, nil
}

func (c *Client) album(ctx context.Context, id spotify.ID) ([]core.TrackMetadata, error) {
	album, err := c.client.GetAlbum(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get album: %w", err)
	}

	page := &album.Tracks
	var tracks []core.TrackMetadata
	for {
		for i := range page.Tracks {
			if len(tracks) == c.maxTracks {
				return tracks, nil
			}
			tracks = append(tracks, convertTrack(&page.Tracks[i], album.Name))
		}

		err := c.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			return tracks, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get album tracks: %w", err)
		}
	}
}

func (c *Client) playlist(ctx context.Context, id spotify.ID) ([]core.TrackMetadata, error) {
	page, err := c.client.GetPlaylistItems(ctx, id, spotify.Limit(playlistPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	var tracks []core.TrackMetadata
	for {
		for i := range page.Items {
			// Episodes and removed tracks have no track object.
			track := page.Items[i].Track.Track
			if track == nil {
				continue
			}
			if len(tracks) == c.maxTracks {
				return tracks, nil
			}
			tracks = append(tracks, convertTrack(&track.SimpleTrack, track.Album.Name))
		}

		err := c.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			return tracks, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get playlist items: %w", err)
		}
	}
}

// resolveShortURL follows a spotify.link or spoti.fi redirect. When the chain
// ends on a landing page, the page is scanned for the open.spotify.com link.
func (c *Client) resolveShortURL(ctx context.Context, shortURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, text.URLResolveTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, shortURL, http.NoBody)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", shortLinkAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.web.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	final := resp.Request.URL.String()
	if _, _, ok := text.SpotifyID(final); ok {
		return final, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, text.ReadBufferSize))
	if err != nil {
		return "", err
	}
	if match := pageLinkRegex.FindString(string(body)); match != "" {
		return match, nil
	}
	return "", fmt.Errorf("%s did not lead to a spotify link", shortURL)
}

func convertTrack(track *spotify.SimpleTrack, album string) core.TrackMetadata {
	artists := make([]string, 0, len(track.Artists))
	for _, a := range track.Artists {
		artists = append(artists, a.Name)
	}

	return core.TrackMetadata{
		Name:            track.Name,
		Artist:          strings.Join(artists, ", "),
		Artists:         artists,
		Album:           album,
		DurationSeconds: int(track.Duration) / 1000,
		ExternalURL:     track.ExternalURLs["spotify"],
	}
}
