package musiclink

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPageResolver_extract(t *testing.T) {
	tests := []struct {
		name           string
		resolver       *PageResolver
		html           string
		expectedTitle  string
		expectedArtist string
	}{
		{
			name:           "Tidal og tags",
			resolver:       NewTidalResolver(nil),
			html:           `<meta property="og:title" content="Midnight City"><meta property="og:description" content="Listen to Midnight City by M83 on TIDAL">`,
			expectedTitle:  "Midnight City",
			expectedArtist: "M83",
		},
		{
			name:           "Beatport title tag",
			resolver:       NewBeatportResolver(nil),
			html:           `<html><head><title>Strobe by deadmau5 on Beatport</title></head></html>`,
			expectedTitle:  "Strobe",
			expectedArtist: "deadmau5",
		},
		{
			name:           "Amazon og title repeats title layout",
			resolver:       NewAmazonMusicResolver(nil),
			html:           `<meta property="og:title" content="Blinding Lights by The Weeknd on Amazon Music">`,
			expectedTitle:  "Blinding Lights",
			expectedArtist: "The Weeknd",
		},
		{
			name:           "Musician tag supplies artist",
			resolver:       NewAmazonMusicResolver(nil),
			html:           `<meta property="og:title" content="Song"><meta name="music:musician_description" content="Band">`,
			expectedTitle:  "Song",
			expectedArtist: "Band",
		},
		{
			name:     "Nothing usable",
			resolver: NewTidalResolver(nil),
			html:     `<html><body>empty</body></html>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := parsePageMeta([]byte(tt.html))
			if err != nil {
				t.Fatalf("parsePageMeta() error = %v", err)
			}
			title, artist := tt.resolver.extract(meta)
			if title != tt.expectedTitle || artist != tt.expectedArtist {
				t.Errorf("extract() = (%q, %q), want (%q, %q)", title, artist, tt.expectedTitle, tt.expectedArtist)
			}
		})
	}
}

func TestPageResolver_Resolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("request without User-Agent")
		}
		if r.URL.Path == "/track/empty" {
			_, _ = w.Write([]byte(`<html></html>`))
			return
		}
		_, _ = w.Write([]byte(`<title>Strobe by deadmau5 on Beatport</title>`))
	}))
	defer server.Close()

	resolver := NewBeatportResolver(server.Client())
	resolver.Hosts = []string{"127.0.0.1"}

	meta, err := resolver.Resolve(context.Background(), server.URL+"/track/strobe/1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if meta.Name != "Strobe" || meta.Artist != "deadmau5" || len(meta.Artists) != 1 {
		t.Errorf("Resolve() = %+v", meta)
	}

	if _, err := resolver.Resolve(context.Background(), server.URL+"/track/empty"); !errors.Is(err, ErrNoTrackInfo) {
		t.Errorf("Resolve() error = %v, want ErrNoTrackInfo", err)
	}
}
