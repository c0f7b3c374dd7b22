package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"golang.org/x/time/rate"
)

var (
	// ErrEmptyBody is returned when a source answers with no audio bytes.
	ErrEmptyBody = errors.New("empty response body")
	// ErrTooLarge is returned when a download exceeds the size cap.
	ErrTooLarge = errors.New("download exceeds size limit")
)

// StatusError reports a non-200 answer from a source.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.Code)
}

// request describes one outgoing GET.
type request struct {
	url     string
	headers map[string]string
	limiter *rate.Limiter
}

func (d *Deps) get(ctx context.Context, r request) (*http.Response, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", d.userAgent())
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range r.headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	client := d.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, &StatusError{URL: r.url, Code: resp.StatusCode}
	}
	return resp, nil
}

// fetch returns the body of a page, limited to maxPageBytes.
func (d *Deps) fetch(ctx context.Context, r request) ([]byte, error) {
	resp, err := d.get(ctx, r)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// downloadFile streams sourceURL into dest. A partial file is removed on error.
func (d *Deps) downloadFile(ctx context.Context, sourceURL, dest string) (int64, error) {
	resp, err := d.get(ctx, request{url: sourceURL})
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	f, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dest, err)
	}

	n, err := io.Copy(f, io.LimitReader(resp.Body, maxAudioBytes+1))
	closeErr := f.Close()
	switch {
	case err != nil:
		err = fmt.Errorf("failed to write %s: %w", dest, err)
	case closeErr != nil:
		err = closeErr
	case n == 0:
		err = ErrEmptyBody
	case n > maxAudioBytes:
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(dest)
		return 0, err
	}
	return n, nil
}

// fillQuery substitutes {q} in a URL template with the escaped query.
func fillQuery(template, query string, pathEscape bool) string {
	escaped := url.QueryEscape(query)
	if pathEscape {
		escaped = url.PathEscape(query)
	}
	return strings.ReplaceAll(template, "{q}", escaped)
}

// absoluteURL resolves href against base. Protocol-relative and bare-host
// links are upgraded to https.
func absoluteURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		if ref.IsAbs() {
			return ref.String()
		}
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

// audioExt guesses the file extension of a media URL, defaulting to .mp3.
func audioExt(mediaURL string) string {
	u, err := url.Parse(mediaURL)
	if err != nil {
		return ".mp3"
	}
	switch ext := strings.ToLower(path.Ext(u.Path)); ext {
	case ".mp3", ".m4a", ".aac", ".ogg", ".wav", ".webm":
		return ext
	default:
		return ".mp3"
	}
}
