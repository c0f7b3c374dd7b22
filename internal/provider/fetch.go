package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"trackhound/internal/core"
	"trackhound/pkg/filename"
)

// ErrNoRunner is returned by extractor-backed providers when no extractor is configured.
var ErrNoRunner = errors.New("no extractor configured")

// FetchMode selects how a chosen source URL becomes a file.
type FetchMode int

const (
	// FetchDirect downloads the URL as-is; it must point at an audio file.
	FetchDirect FetchMode = iota
	// FetchExtractor hands the URL to the extractor (yt-dlp).
	FetchExtractor
)

// save turns a source URL into a confirmed file in req.Dir. title is the name
// the source reported for it; direct downloads are named after it.
func (d *Deps) save(ctx context.Context, mode FetchMode, sourceURL, title string, req *core.Request, opts DownloadOptions) core.Outcome {
	switch mode {
	case FetchExtractor:
		if d.Runner == nil {
			return core.Transient(ErrNoRunner)
		}
		p, err := d.Runner.Download(ctx, sourceURL, req.Dir, opts)
		if err != nil {
			return core.Transient(fmt.Errorf("failed to download %s: %w", sourceURL, err))
		}
		return core.FoundPath(p, sourceURL)
	default:
		dest := filepath.Join(req.Dir, filename.WithExt(fileTitle(title, req), audioExt(sourceURL)))
		if _, err := d.downloadFile(ctx, sourceURL, dest); err != nil {
			return core.Transient(fmt.Errorf("failed to download %s: %w", sourceURL, err))
		}
		return core.FoundPath(dest, sourceURL)
	}
}

// fileTitle prefers the title a source reported over the request's own.
func fileTitle(reported string, req *core.Request) string {
	if t := strings.TrimSpace(reported); t != "" {
		return t
	}
	return req.Title()
}

// page fetches and parses an HTML page.
func (d *Deps) page(ctx context.Context, pageURL string) (*goquery.Document, *url.URL, error) {
	body, err := d.fetch(ctx, request{url: pageURL})
	if err != nil {
		return nil, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, nil, err
	}
	return doc, base, nil
}
