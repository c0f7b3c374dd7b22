// Package musiclink resolves links from non-Spotify music services into track metadata.
package musiclink

import (
	"context"
	"errors"
	"net/http"

	"trackhound/internal/core"
)

// ErrNoResolver is returned for links no resolver accepts.
var ErrNoResolver = errors.New("no resolver found for URL")

// Resolver turns one service's link into a single track.
type Resolver interface {
	CanResolve(url string) bool
	Resolve(ctx context.Context, url string) (*core.TrackMetadata, error)
}

// Manager dispatches a link to the first resolver that accepts it.
type Manager struct {
	resolvers []Resolver
}

// NewManager creates a manager with all supported services. client may be nil.
func NewManager(client *http.Client) *Manager {
	if client == nil {
		client = newHTTPClient()
	}
	return &Manager{
		resolvers: []Resolver{
			NewYouTubeResolver(client),
			NewAppleMusicResolver(client),
			NewTidalResolver(client),
			NewBeatportResolver(client),
			NewAmazonMusicResolver(client),
			NewSoundCloudResolver(client),
		},
	}
}

// Resolve returns the single track behind url.
func (m *Manager) Resolve(ctx context.Context, url string) ([]core.TrackMetadata, error) {
	for _, resolver := range m.resolvers {
		if !resolver.CanResolve(url) {
			continue
		}
		meta, err := resolver.Resolve(ctx, url)
		if err != nil {
			return nil, err
		}
		meta.ExternalURL = url
		return []core.TrackMetadata{*meta}, nil
	}
	return nil, ErrNoResolver
}

// CanResolve reports whether any resolver accepts url.
func (m *Manager) CanResolve(url string) bool {
	for _, resolver := range m.resolvers {
		if resolver.CanResolve(url) {
			return true
		}
	}
	return false
}
