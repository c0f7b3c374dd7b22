package text

import (
	"testing"

	"trackhound/internal/core"
)

// runBooleanTest is a helper to run tests for boolean functions.
func runBooleanTest(t *testing.T, testName string,
	testFunc func(string) bool, testCases []struct {
		name     string
		input    string
		expected bool
	}) {
	t.Helper()
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			result := testFunc(tt.input)
			if result != tt.expected {
				t.Errorf("%s() = %v, want %v", testName, result, tt.expected)
			}
		})
	}
}

func TestParser_ParseMessage(t *testing.T) {
	parser := NewParser()
	tests := []struct {
		name     string
		input    string
		expected core.MessageType
		urls     []string
	}{
		{
			"Spotify track link",
			"Check this out: https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC",
			core.MessageTypeSpotifyLink,
			[]string{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"},
		},
		{
			"Spotify playlist link with tracking",
			"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc123",
			core.MessageTypeSpotifyLink,
			[]string{"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"},
		},
		{
			"Spotify URI",
			"spotify:album:1DFixLWuPkv3KT3TnV35m3",
			core.MessageTypeSpotifyLink,
			[]string{"spotify:album:1DFixLWuPkv3KT3TnV35m3"},
		},
		{
			"Spotify shortened link",
			"Check this out: https://spotify.link/ie2dPfjkzXb",
			core.MessageTypeSpotifyLink,
			[]string{"https://spotify.link/ie2dPfjkzXb"},
		},
		{
			"YouTube link",
			"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			core.MessageTypeNonSpotifyLink,
			[]string{"https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		},
		{
			"YouTube short link",
			"https://youtu.be/dQw4w9WgXcQ",
			core.MessageTypeNonSpotifyLink,
			[]string{"https://youtu.be/dQw4w9WgXcQ"},
		},
		{
			"Apple Music link",
			"https://music.apple.com/us/album/nevermind/1440783617",
			core.MessageTypeNonSpotifyLink,
			[]string{"https://music.apple.com/us/album/nevermind/1440783617"},
		},
		{"Free text song request", "never gonna give you up rick astley", core.MessageTypeFreeText, nil},
		{
			"Text with regular URL",
			"Check out this website: https://example.com",
			core.MessageTypeFreeText,
			[]string{"https://example.com"},
		},
		{"Empty message", "", core.MessageTypeFreeText, nil},
		{"Whitespace only", "   \n\t  ", core.MessageTypeFreeText, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parser.ParseMessage(tt.input)

			if result.Type != tt.expected {
				t.Errorf("ParseMessage() type = %v, want %v", result.Type, tt.expected)
			}
			if len(result.URLs) != len(tt.urls) {
				t.Fatalf("ParseMessage() URLs = %v, want %v", result.URLs, tt.urls)
			}
			for i, u := range tt.urls {
				if result.URLs[i] != u {
					t.Errorf("ParseMessage() URL[%d] = %s, want %s", i, result.URLs[i], u)
				}
			}
		})
	}
}

func TestSpotifyID(t *testing.T) {
	tests := []struct {
		input    string
		wantKind string
		wantID   string
		wantOK   bool
	}{
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", KindTrack, "4uLU6hMCjMI75M1A2tKUQC", true},
		{"https://open.spotify.com/intl-de/track/4uLU6hMCjMI75M1A2tKUQC?si=x", KindTrack, "4uLU6hMCjMI75M1A2tKUQC", true},
		{"https://open.spotify.com/album/1DFixLWuPkv3KT3TnV35m3", KindAlbum, "1DFixLWuPkv3KT3TnV35m3", true},
		{"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", KindPlaylist, "37i9dQZF1DXcBWIGoYBM5M", true},
		{"spotify:track:4uLU6hMCjMI75M1A2tKUQC", KindTrack, "4uLU6hMCjMI75M1A2tKUQC", true},
		{"https://open.spotify.com/artist/0OdUWJ0sBjDrqHygGUXeCF", "", "", false},
		{"https://example.com/track/4uLU6hMCjMI75M1A2tKUQC", "", "", false},
		{"not a link", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			kind, id, ok := SpotifyID(tt.input)
			if kind != tt.wantKind || id != tt.wantID || ok != tt.wantOK {
				t.Errorf("SpotifyID() = (%q, %q, %v), want (%q, %q, %v)",
					kind, id, ok, tt.wantKind, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestParser_normalizeText(t *testing.T) {
	parser := NewParser()
	tests := []struct {
		input    string
		expected string
	}{
		{"  hello   world  ", "hello world"},
		{"line one\n\nline two", "line one line two"},
		{"ｆｕｌｌｗｉｄｔｈ", "fullwidth"},
	}

	for _, tt := range tests {
		if got := parser.normalizeText(tt.input); got != tt.expected {
			t.Errorf("normalizeText(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestParser_cleanURL(t *testing.T) {
	parser := NewParser()
	tests := []struct {
		input    string
		expected string
	}{
		{"https://open.spotify.com/track/abc?si=123&utm_source=copy-link", "https://open.spotify.com/track/abc"},
		{"https://youtu.be/dQw4w9WgXcQ.", "https://youtu.be/dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=x&utm_medium=share", "https://www.youtube.com/watch?v=x"},
		{"ftp://example.com/file", ""},
		{"https://", ""},
	}

	for _, tt := range tests {
		if got := parser.cleanURL(tt.input); got != tt.expected {
			t.Errorf("cleanURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestIsSpotifyLink(t *testing.T) {
	runBooleanTest(t, "IsSpotifyLink", IsSpotifyLink, []struct {
		name     string
		input    string
		expected bool
	}{
		{"track", "https://open.spotify.com/track/abc123", true},
		{"album", "https://open.spotify.com/album/abc123", true},
		{"short link", "https://spotify.link/ie2dPfjkzXb", true},
		{"spoti.fi", "https://spoti.fi/3xyz", true},
		{"uri", "spotify:playlist:abc123", true},
		{"artist page", "https://open.spotify.com/artist/abc123", false},
		{"youtube", "https://youtube.com/watch?v=abc", false},
	})
}

func TestIsMusicLink(t *testing.T) {
	runBooleanTest(t, "IsMusicLink", IsMusicLink, []struct {
		name     string
		input    string
		expected bool
	}{
		{"youtube", "https://www.youtube.com/watch?v=abc", true},
		{"mobile youtube", "https://m.youtube.com/watch?v=abc", true},
		{"youtube music", "https://music.youtube.com/watch?v=abc", true},
		{"soundcloud", "https://soundcloud.com/artist/track", true},
		{"tidal", "https://tidal.com/browse/track/12345", true},
		{"beatport", "https://www.beatport.com/track/name/123", true},
		{"amazon music", "https://music.amazon.de/albums/B0ABC", true},
		{"apple music", "https://music.apple.com/us/album/x/1", true},
		{"unknown", "https://example.com/song", false},
	})
}
