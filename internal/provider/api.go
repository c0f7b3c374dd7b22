package provider

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"trackhound/internal/core"
)

// API searches a JSON endpoint and downloads a media URL taken from the hit,
// from a JSON detail lookup, or from links on a detail page.
type API struct {
	Label     string
	SearchURL string
	Timeout   time.Duration
	Headers   map[string]string
	// Results are gjson paths tried in order; the first array or object found holds the hits.
	Results []string
	ID      string
	// MediaPaths are gjson paths (relative to the hit or detail item) yielding URLs.
	MediaPaths []string
	// DetailURL, when set, is fetched with {id} replaced by the hit's ID.
	DetailURL string
	// DetailItem are gjson paths to the item inside a JSON detail document.
	DetailItem []string
	// PageLinks, when set, treats DetailURL as an HTML page and scrapes media links from it.
	PageLinks *LinkRule
	// TitlePaths are gjson paths to the hit's title, used to name direct downloads.
	TitlePaths []string
	Tries      int
	Deps       *Deps
}

func (a *API) Name() string { return a.Label }

func (a *API) SearchAndDownload(ctx context.Context, req *core.Request) core.Outcome {
	ctx, cancel := context.WithTimeout(ctx, timeoutOr(a.Timeout))
	defer cancel()

	body, err := a.Deps.fetch(ctx, request{url: fillQuery(a.SearchURL, req.Query, false), headers: a.Headers})
	if err != nil {
		return core.Transient(err)
	}

	hits := hitsAt(gjson.ParseBytes(body), a.Results)
	if len(hits) == 0 {
		return core.NotFound()
	}

	tries := a.Tries
	if tries <= 0 {
		tries = 1
	}

	var lastErr error
	for i, hit := range hits {
		if i >= tries {
			break
		}
		urls, err := a.mediaURLs(ctx, hit)
		if err != nil {
			lastErr = err
			continue
		}
		media := a.preferred(urls)
		if media == "" {
			continue
		}

		out := a.Deps.save(ctx, FetchDirect, media, firstString(hit, a.TitlePaths), req, DownloadOptions{})
		if out.Status == core.StatusFound {
			return out
		}
		if out.Err != nil {
			lastErr = out.Err
		}
	}

	if lastErr != nil {
		return core.Transient(lastErr)
	}
	return core.NotFound()
}

func (a *API) mediaURLs(ctx context.Context, hit gjson.Result) ([]string, error) {
	if a.DetailURL == "" {
		return collectStrings(hit, a.MediaPaths), nil
	}

	id := hit.Get(a.ID).String()
	if id == "" {
		return nil, nil
	}
	detailURL := strings.ReplaceAll(a.DetailURL, "{id}", url.PathEscape(id))

	if a.PageLinks != nil {
		doc, base, err := a.Deps.page(ctx, detailURL)
		if err != nil {
			return nil, err
		}
		var urls []string
		for _, c := range a.PageLinks.extract(doc, base) {
			urls = append(urls, c.SourceURL)
		}
		return urls, nil
	}

	body, err := a.Deps.fetch(ctx, request{url: detailURL, headers: a.Headers})
	if err != nil {
		return nil, err
	}
	doc := gjson.ParseBytes(body)
	for _, p := range a.DetailItem {
		if item := doc.Get(p); item.Exists() && item.IsObject() {
			return collectStrings(item, a.MediaPaths), nil
		}
	}
	return nil, nil
}

// preferred picks a 320 kbps link, then any .mp3 link, then the first one.
func (a *API) preferred(urls []string) string {
	var usable []string
	for _, u := range urls {
		if strings.HasPrefix(u, "http") && !a.Deps.blocked(u) {
			usable = append(usable, u)
		}
	}
	for _, u := range usable {
		if strings.Contains(pathAndQuery(u), "320") {
			return u
		}
	}
	for _, u := range usable {
		if strings.HasSuffix(strings.ToLower(u), ".mp3") {
			return u
		}
	}
	if len(usable) > 0 {
		return usable[0]
	}
	return ""
}

func pathAndQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.RequestURI()
}

// collectStrings gathers string values at paths; arrays are flattened one level.
func collectStrings(item gjson.Result, paths []string) []string {
	var out []string
	add := func(r gjson.Result) {
		if r.Type == gjson.String && r.String() != "" {
			out = append(out, r.String())
		}
	}
	for _, p := range paths {
		r := item.Get(p)
		if r.IsArray() {
			for _, e := range r.Array() {
				add(e)
			}
			continue
		}
		add(r)
	}
	return out
}

func firstString(item gjson.Result, paths []string) string {
	for _, p := range paths {
		if r := item.Get(p); r.Type == gjson.String && strings.TrimSpace(r.String()) != "" {
			return r.String()
		}
	}
	return ""
}
