package musiclink

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"trackhound/internal/core"
)

// PageResolver reads title and artist from the Open Graph tags or the
// <title> of a service's public track page.
type PageResolver struct {
	Service string
	// Hosts are accepted hostnames; a trailing "." matches any TLD.
	Hosts []string
	// PathHint, when set, must appear in the link path.
	PathHint string
	// Suffix is stripped from <title> before splitting on Separator.
	Suffix    string
	Separator string
	// DescriptionSeparator splits the artist out of og:description.
	DescriptionSeparator string
	DescriptionSuffix    string

	client *http.Client
}

func NewTidalResolver(client *http.Client) *PageResolver {
	return &PageResolver{
		Service:              "Tidal",
		Hosts:                []string{"tidal.com", "www.tidal.com", "listen.tidal.com"},
		PathHint:             "/track/",
		Suffix:               " | TIDAL",
		Separator:            " by ",
		DescriptionSeparator: "by ",
		DescriptionSuffix:    " on TIDAL",
		client:               client,
	}
}

func NewBeatportResolver(client *http.Client) *PageResolver {
	return &PageResolver{
		Service:              "Beatport",
		Hosts:                []string{"beatport.com", "www.beatport.com"},
		PathHint:             "/track/",
		Suffix:               " on Beatport",
		Separator:            " by ",
		DescriptionSeparator: " by ",
		client:               client,
	}
}

func NewAmazonMusicResolver(client *http.Client) *PageResolver {
	return &PageResolver{
		Service:              "Amazon Music",
		Hosts:                []string{"music.amazon."},
		Suffix:               " on Amazon Music",
		Separator:            " by ",
		DescriptionSeparator: " by ",
		client:               client,
	}
}

func (r *PageResolver) CanResolve(rawURL string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	for _, h := range r.Hosts {
		if host == h || (strings.HasSuffix(h, ".") && strings.HasPrefix(host, h)) {
			return r.PathHint == "" || strings.Contains(rawURL, r.PathHint)
		}
	}
	return false
}

func (r *PageResolver) Resolve(ctx context.Context, rawURL string) (*core.TrackMetadata, error) {
	body, err := fetch(ctx, r.client, rawURL, r.Service)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s page: %w", r.Service, err)
	}

	meta, err := parsePageMeta(body)
	if err != nil {
		return nil, err
	}
	return track(r.extract(meta))
}

// extract prefers og:title with the artist from og:description or the
// musician tag, then falls back to splitting <title>.
func (r *PageResolver) extract(meta pageMeta) (title, artist string) {
	if meta.OGTitle != "" {
		title = meta.OGTitle
		if _, after, ok := strings.Cut(meta.OGDescription, r.DescriptionSeparator); ok && r.DescriptionSeparator != "" {
			artist = strings.TrimSpace(strings.TrimSuffix(after, r.DescriptionSuffix))
		}
		if artist == "" {
			artist = meta.Musician
		}
		if artist == "" {
			// og:title often repeats the <title> layout.
			return splitTitle(title, r.Suffix, r.Separator)
		}
		return title, artist
	}
	return splitTitle(meta.Title, r.Suffix, r.Separator)
}
