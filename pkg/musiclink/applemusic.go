package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"trackhound/internal/core"
)

// iTunesLookupURL is the iTunes/Apple Music API lookup endpoint.
const iTunesLookupURL = "https://itunes.apple.com/lookup"

// AppleMusicResolver resolves Apple Music song links through the iTunes lookup API.
type AppleMusicResolver struct {
	client   *http.Client
	endpoint string
}

func NewAppleMusicResolver(client *http.Client) *AppleMusicResolver {
	return &AppleMusicResolver{client: client, endpoint: iTunesLookupURL}
}

// CanResolve accepts music.apple.com and the legacy itunes.apple.com.
func (r *AppleMusicResolver) CanResolve(rawURL string) bool {
	host := hostOf(rawURL)
	return host == "music.apple.com" || host == "itunes.apple.com"
}

func (r *AppleMusicResolver) Resolve(ctx context.Context, rawURL string) (*core.TrackMetadata, error) {
	trackID, err := r.extractTrackID(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract track ID: %w", err)
	}

	body, err := fetch(ctx, r.client, r.endpoint+"?entity=song&id="+url.QueryEscape(trackID), "iTunes API")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch track data: %w", err)
	}

	song := gjson.GetBytes(body, `results.#(wrapperType=="track")`)
	if !song.Exists() {
		song = gjson.GetBytes(body, "results.0")
	}
	if !song.Exists() {
		return nil, errors.New("no track found in iTunes API response")
	}

	meta, err := track(song.Get("trackName").String(), song.Get("artistName").String())
	if err != nil {
		return nil, err
	}
	meta.Album = song.Get("collectionName").String()
	meta.DurationSeconds = int(song.Get("trackTimeMillis").Int() / 1000)
	return meta, nil
}

// extractTrackID reads ?i=<id> from album links or the trailing id of /song/ links.
func (r *AppleMusicResolver) extractTrackID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	if id := u.Query().Get("i"); id != "" {
		return id, nil
	}
	if strings.Contains(u.Path, "/song/") {
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if id := parts[len(parts)-1]; id != "" {
			return id, nil
		}
	}
	return "", errors.New("no track ID found in Apple Music URL (album links without ?i= are not supported)")
}
