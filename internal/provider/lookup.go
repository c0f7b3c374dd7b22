package provider

import (
	"context"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"trackhound/internal/core"
	"trackhound/pkg/fuzzy"
)

var normalizer = fuzzy.NewNormalizer()

// Lookup asks a metadata service for the canonical artist and title, then
// searches the extractor for "artist title".
type Lookup struct {
	Label   string
	URL     string
	Headers map[string]string
	Limiter *rate.Limiter
	// Hits are gjson paths tried in order; an array or a single object is accepted.
	Hits   []string
	Title  string
	Artist string
	// TitleSeparator splits "Artist - Title" hit titles when Artist is empty.
	TitleSeparator string
	// Search is the extractor target; {q} becomes "artist title".
	Search  string
	Options DownloadOptions
	Timeout time.Duration
	Deps    *Deps
}

func (l *Lookup) Name() string { return l.Label }

func (l *Lookup) SearchAndDownload(ctx context.Context, req *core.Request) core.Outcome {
	if l.Deps.Runner == nil {
		return core.Transient(ErrNoRunner)
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOr(l.Timeout))
	defer cancel()

	body, err := l.Deps.fetch(ctx, request{
		url:     fillQuery(l.URL, req.Query, false),
		headers: l.Headers,
		limiter: l.Limiter,
	})
	if err != nil {
		return core.Transient(err)
	}

	artist, title, ok := l.pick(gjson.ParseBytes(body), req.Metadata)
	if !ok {
		return core.NotFound()
	}

	target := strings.ReplaceAll(l.Search, "{q}", strings.TrimSpace(artist+" "+title))
	listing, err := l.Deps.Runner.List(ctx, target)
	if err != nil {
		return core.Transient(err)
	}
	for _, c := range listing {
		if l.Deps.blocked(c.SourceURL) {
			continue
		}
		return l.Deps.save(ctx, FetchExtractor, c.SourceURL, c.Title, req, l.Options)
	}
	return core.NotFound()
}

// pick returns the first hit that plausibly matches meta, or the first hit
// when there is no metadata to compare against.
func (l *Lookup) pick(doc gjson.Result, meta *core.TrackMetadata) (artist, title string, ok bool) {
	for _, hit := range hitsAt(doc, l.Hits) {
		title = strings.TrimSpace(hit.Get(l.Title).String())
		artist = ""
		if l.Artist != "" {
			artist = strings.TrimSpace(hit.Get(l.Artist).String())
		} else if l.TitleSeparator != "" {
			artist, title = fuzzy.SplitTitle(title, l.TitleSeparator)
		}
		if title == "" {
			continue
		}
		if meta == nil || meta.Name == "" {
			return artist, title, true
		}
		if normalizer.Plausible(title, artist, meta.Name, meta.Artist) {
			return artist, title, true
		}
	}
	return "", "", false
}

func hitsAt(doc gjson.Result, paths []string) []gjson.Result {
	for _, p := range paths {
		r := doc.Get(p)
		switch {
		case r.IsArray():
			return r.Array()
		case r.IsObject():
			return []gjson.Result{r}
		}
	}
	return nil
}
