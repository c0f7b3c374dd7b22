package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"

	"trackhound/internal/core"
)

const (
	trackJSON = `{"id":"t1","name":"Get Lucky","duration_ms":369000,
		"artists":[{"name":"Daft Punk"},{"name":"Pharrell Williams"}],
		"album":{"name":"Random Access Memories"},
		"external_urls":{"spotify":"https://open.spotify.com/track/t1"}}`
	albumJSON = `{"id":"a1","name":"Discovery","tracks":{"items":[
		{"name":"One More Time","duration_ms":320000,"artists":[{"name":"Daft Punk"}]},
		{"name":"Aerodynamic","duration_ms":212000,"artists":[{"name":"Daft Punk"}]},
		{"name":"Digital Love","duration_ms":301000,"artists":[{"name":"Daft Punk"}]}
	]}}`
	playlistJSON = `{"items":[
		{"track":{"type":"episode","name":"A Podcast"}},
		{"track":{"type":"track","name":"Around the World","duration_ms":429000,
			"artists":[{"name":"Daft Punk"}],"album":{"name":"Homework"}}}
	]}`
)

func newTestClient(t *testing.T, maxTracks int) (*Client, *atomic.Int32) {
	t.Helper()

	var trackHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/tracks/t1", func(w http.ResponseWriter, _ *http.Request) {
		trackHits.Add(1)
		_, _ = w.Write([]byte(trackJSON))
	})
	mux.HandleFunc("/albums/a1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(albumJSON))
	})
	playlist := func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(playlistJSON))
	}
	mux.HandleFunc("/playlists/p1/tracks", playlist)
	mux.HandleFunc("/playlists/p1/items", playlist)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c := NewClient(&core.SpotifyConfig{}, maxTracks, zap.NewNop())
	c.client = spotify.New(server.Client(), spotify.WithBaseURL(server.URL+"/"))
	return c, &trackHits
}

func TestClient_ResolveTrack(t *testing.T) {
	c, hits := newTestClient(t, 50)

	tracks, err := c.Resolve(context.Background(), "https://open.spotify.com/track/t1?si=abc")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []core.TrackMetadata{{
		Name:            "Get Lucky",
		Artist:          "Daft Punk, Pharrell Williams",
		Artists:         []string{"Daft Punk", "Pharrell Williams"},
		Album:           "Random Access Memories",
		DurationSeconds: 369,
		ExternalURL:     "https://open.spotify.com/track/t1",
	}}
	if !reflect.DeepEqual(tracks, want) {
		t.Errorf("Resolve() = %+v, want %+v", tracks, want)
	}

	if _, err := c.Resolve(context.Background(), "spotify:track:t1"); err != nil {
		t.Fatalf("Resolve() by URI error = %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("track fetched %d times, want 1 (cached)", got)
	}
}

func TestClient_ResolveAlbumCapsTracks(t *testing.T) {
	c, _ := newTestClient(t, 2)

	tracks, err := c.Resolve(context.Background(), "https://open.spotify.com/album/a1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("got %d tracks, want 2", len(tracks))
	}
	if tracks[0].Name != "One More Time" || tracks[0].Album != "Discovery" || tracks[0].DurationSeconds != 320 {
		t.Errorf("first track = %+v", tracks[0])
	}
}

func TestClient_ResolvePlaylistSkipsEpisodes(t *testing.T) {
	c, _ := newTestClient(t, 50)

	tracks, err := c.Resolve(context.Background(), "https://open.spotify.com/playlist/p1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(tracks) != 1 || tracks[0].Name != "Around the World" || tracks[0].Album != "Homework" {
		t.Errorf("Resolve() = %+v", tracks)
	}
}

func TestClient_ResolveErrors(t *testing.T) {
	unauthenticated := NewClient(&core.SpotifyConfig{}, 0, zap.NewNop())
	if _, err := unauthenticated.Resolve(context.Background(), "spotify:track:t1"); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("error = %v, want ErrNotAuthenticated", err)
	}

	c, _ := newTestClient(t, 50)
	if _, err := c.Resolve(context.Background(), "https://open.spotify.com/artist/x"); !errors.Is(err, ErrUnsupportedLink) {
		t.Errorf("error = %v, want ErrUnsupportedLink", err)
	}
}

func TestClient_ResolveShortURL(t *testing.T) {
	landing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/redirect" {
			http.Redirect(w, r, "/landing", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte(`<html><head><meta property="og:url" content="https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"></head></html>`))
	}))
	defer landing.Close()

	c := NewClient(&core.SpotifyConfig{}, 0, zap.NewNop())
	got, err := c.resolveShortURL(context.Background(), landing.URL+"/redirect")
	if err != nil {
		t.Fatalf("resolveShortURL() error = %v", err)
	}
	if got != "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC" {
		t.Errorf("resolveShortURL() = %q", got)
	}
}

func TestClient_CanResolve(t *testing.T) {
	c := NewClient(&core.SpotifyConfig{}, 0, zap.NewNop())
	for link, want := range map[string]bool{
		"https://open.spotify.com/track/abc": true,
		"https://spoti.fi/xyz":               true,
		"spotify:album:abc":                  true,
		"https://youtu.be/abc":               false,
	} {
		if got := c.CanResolve(link); got != want {
			t.Errorf("CanResolve(%q) = %v, want %v", link, got, want)
		}
	}
}
