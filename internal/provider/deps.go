// Package provider implements the audio sources of the acquisition cascade.
//
// Each source is a configuration over a small set of generic kinds: Scrape
// (HTML search pages), API (JSON search endpoints), Extractor (yt-dlp
// listings), Lookup (metadata service followed by an extractor search),
// Stream (pure-Go YouTube download) and Staged/Chain/Variants combinators.
// Every kind implements core.Provider and reports failures through
// core.Outcome instead of returning errors.
package provider

import (
	"net/http"
	"time"

	"github.com/kkdai/youtube/v2"
	"go.uber.org/zap"

	"trackhound/internal/core"
)

const (
	// defaultTimeout bounds one provider attempt when the entry sets none.
	defaultTimeout = 15 * time.Second
	// maxPageBytes caps how much of a search or detail page is read.
	maxPageBytes = 4 << 20
	// maxAudioBytes caps a direct audio download.
	maxAudioBytes = 50 << 20
	// browserUserAgent is sent to sources that reject non-browser clients.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Deps carries the collaborators shared by all providers of one cascade.
type Deps struct {
	HTTP           *http.Client
	Runner         Runner
	YouTube        *youtube.Client
	Blocklist      core.SourceFilter
	Logger         *zap.Logger
	FuzzyThreshold int
	UserAgent      string
}

func (d *Deps) logger() *zap.Logger {
	if d == nil || d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func (d *Deps) userAgent() string {
	if d.UserAgent != "" {
		return d.UserAgent
	}
	return browserUserAgent
}

func (d *Deps) threshold() int {
	if d.FuzzyThreshold > 0 {
		return d.FuzzyThreshold
	}
	return core.DefaultFuzzyThreshold
}

// blocked reports whether a source URL is known to produce unusable audio.
func (d *Deps) blocked(sourceURL string) bool {
	return d.Blocklist != nil && d.Blocklist.Has(sourceURL)
}

func timeoutOr(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return defaultTimeout
}
