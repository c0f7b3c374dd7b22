package musiclink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"trackhound/internal/core"
)

const (
	commonUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	commonAcceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	// defaultHTTPTimeout is the default timeout for HTTP requests.
	defaultHTTPTimeout = 10 * time.Second
	// maxHTTPRedirects is the maximum number of HTTP redirects to follow.
	maxHTTPRedirects = 3
	// maxReadSize bounds how much of a page or API response is read.
	maxReadSize = 512 << 10
)

var (
	// ErrTooManyRedirects is returned when too many redirects are encountered.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrNoTrackInfo is returned when a page carries no usable title.
	ErrNoTrackInfo = errors.New("could not extract track information")
)

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: defaultHTTPTimeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxHTTPRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
}

// fetch GETs rawURL with browser headers and returns at most maxReadSize bytes.
func fetch(ctx context.Context, client *http.Client, rawURL, service string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", commonUserAgent)
	req.Header.Set("Accept", commonAcceptHeader)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", service, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReadSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// fetchOEmbed queries an oEmbed endpoint for targetURL.
func fetchOEmbed(ctx context.Context, client *http.Client, endpoint, targetURL, service string) (gjson.Result, error) {
	reqURL := endpoint + "?format=json&url=" + url.QueryEscape(targetURL)
	body, err := fetch(ctx, client, reqURL, service)
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%s returned invalid oEmbed JSON", service)
	}
	return gjson.ParseBytes(body), nil
}

// pageMeta holds the title-bearing metadata of an HTML page.
type pageMeta struct {
	OGTitle       string
	OGDescription string
	Musician      string
	Title         string
}

func parsePageMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("failed to parse page: %w", err)
	}

	meta := func(attr, name string) string {
		v, _ := doc.Find(fmt.Sprintf(`meta[%s=%q]`, attr, name)).First().Attr("content")
		return strings.TrimSpace(v)
	}
	return pageMeta{
		OGTitle:       meta("property", "og:title"),
		OGDescription: meta("property", "og:description"),
		Musician:      meta("name", "music:musician_description"),
		Title:         strings.TrimSpace(doc.Find("title").First().Text()),
	}, nil
}

// splitTitle splits "Title<sep>Artist" after removing suffix. Without the
// separator the whole text is the title.
func splitTitle(text, suffix, separator string) (title, artist string) {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), suffix))
	if separator != "" {
		if before, after, ok := strings.Cut(text, separator); ok {
			return strings.TrimSpace(before), strings.TrimSpace(after)
		}
	}
	return text, ""
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func track(title, artist string) (*core.TrackMetadata, error) {
	if title == "" {
		return nil, ErrNoTrackInfo
	}
	meta := &core.TrackMetadata{Name: title, Artist: artist}
	if artist != "" {
		meta.Artists = []string{artist}
	}
	return meta, nil
}
