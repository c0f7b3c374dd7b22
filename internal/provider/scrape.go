package provider

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"trackhound/internal/core"
	"trackhound/pkg/fuzzy"
)

const defaultLinkLimit = 10

// LinkRule selects candidate links from a page.
type LinkRule struct {
	// Selector is a CSS selector; "a[href]" when empty.
	Selector string
	// Attr holds the link; "href" when empty.
	Attr string
	// Pattern must match the absolute URL.
	Pattern *regexp.Regexp
	// Unwrap names a query parameter carrying the real target of a redirect link.
	Unwrap string
	// Skip drops links containing any of these substrings.
	Skip  []string
	Limit int
}

func (r LinkRule) extract(doc *goquery.Document, base *url.URL) []core.Candidate {
	selector := r.Selector
	if selector == "" {
		selector = "a[href]"
	}
	attr := r.Attr
	if attr == "" {
		attr = "href"
	}
	limit := r.Limit
	if limit <= 0 {
		limit = defaultLinkLimit
	}

	seen := make(map[string]struct{})
	var out []core.Candidate
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr(attr)
		if !ok {
			return true
		}
		link := r.resolve(base, href)
		if link == "" || r.skipped(link) {
			return true
		}
		if _, dup := seen[link]; dup {
			return true
		}
		seen[link] = struct{}{}

		title := strings.TrimSpace(s.Text())
		if title == "" {
			title, _ = s.Attr("title")
		}
		out = append(out, core.Candidate{SourceURL: link, Title: title})
		return len(out) < limit
	})
	return out
}

func (r LinkRule) resolve(base *url.URL, href string) string {
	link := absoluteURL(base, href)
	if link == "" {
		return ""
	}
	if r.Unwrap != "" {
		u, err := url.Parse(link)
		if err != nil {
			return ""
		}
		target := u.Query().Get(r.Unwrap)
		if target == "" {
			return ""
		}
		link = absoluteURL(nil, target)
	}
	if r.Pattern != nil && !r.Pattern.MatchString(link) {
		return ""
	}
	return link
}

func (r LinkRule) skipped(link string) bool {
	for _, s := range r.Skip {
		if strings.Contains(link, s) {
			return true
		}
	}
	return false
}

// Scrape searches an HTML page, optionally follows a detail page and fetches
// the chosen link.
type Scrape struct {
	Label      string
	SearchURL  string
	PathEscape bool
	Timeout    time.Duration
	Links      LinkRule
	// Detail, when set, is applied to each chosen link's page to find the media URL.
	Detail *LinkRule
	Rank   Rank
	// TitleSeparator and TitleSuffix parse "Artist{sep}Track{suffix}" page titles for RankFuzzy.
	TitleSeparator string
	TitleSuffix    string
	Fetch          FetchMode
	// Tries is how many ranked links are attempted; 1 when zero.
	Tries int
	Deps  *Deps
}

func (s *Scrape) Name() string { return s.Label }

func (s *Scrape) SearchAndDownload(ctx context.Context, req *core.Request) core.Outcome {
	ctx, cancel := context.WithTimeout(ctx, timeoutOr(s.Timeout))
	defer cancel()

	doc, base, err := s.Deps.page(ctx, fillQuery(s.SearchURL, req.Query, s.PathEscape))
	if err != nil {
		return core.Transient(err)
	}

	cands := s.unblocked(s.Links.extract(doc, base))
	if len(cands) == 0 {
		return core.NotFound()
	}

	ranked := s.rank(ctx, cands, req)
	tries := s.Tries
	if tries <= 0 {
		tries = 1
	}

	var lastErr error
	for i, c := range ranked {
		if i >= tries {
			break
		}
		if err := ctx.Err(); err != nil {
			return core.Transient(err)
		}

		source := c.SourceURL
		if s.Detail != nil {
			source, err = s.follow(ctx, source)
			if err != nil {
				lastErr = err
				continue
			}
			if source == "" {
				continue
			}
		}

		out := s.Deps.save(ctx, s.Fetch, source, c.Title, req, DownloadOptions{UserAgent: browserUserAgent})
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

func (s *Scrape) unblocked(cands []core.Candidate) []core.Candidate {
	out := cands[:0]
	for _, c := range cands {
		if !s.Deps.blocked(c.SourceURL) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Scrape) rank(ctx context.Context, cands []core.Candidate, req *core.Request) []core.Candidate {
	if s.Rank != RankFuzzy {
		return order(s.Rank, cands, req.Metadata)
	}
	if best, ok := s.bestTitle(ctx, cands, req); ok {
		return []core.Candidate{best}
	}
	return nil
}

// bestTitle opens each candidate and scores its page title against the request.
func (s *Scrape) bestTitle(ctx context.Context, cands []core.Candidate, req *core.Request) (core.Candidate, bool) {
	var (
		best      core.Candidate
		bestScore = -1
	)
	for _, c := range cands {
		doc, _, err := s.Deps.page(ctx, c.SourceURL)
		if err != nil {
			s.Deps.logger().Debug("Failed to open candidate page",
				zap.String("provider", s.Label), zap.String("url", c.SourceURL), zap.Error(err))
			continue
		}
		title := strings.TrimSpace(doc.Find("title").First().Text())
		title = strings.TrimSpace(strings.TrimSuffix(title, s.TitleSuffix))
		artist, track := fuzzy.SplitTitle(title, s.TitleSeparator)

		score := fuzzy.PairScore(track, artist, req.Metadata, req.Query)
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best, bestScore >= fuzzyLimit(s.Deps.threshold(), req.Metadata)
}

// fuzzyLimit is the acceptance threshold for a request. Without both a title
// and an artist only one half of the two-part score is available.
func fuzzyLimit(threshold int, meta *core.TrackMetadata) int {
	if meta == nil || meta.Name == "" || meta.Artist == "" {
		return threshold / 2
	}
	return threshold
}

func (s *Scrape) follow(ctx context.Context, pageURL string) (string, error) {
	doc, base, err := s.Deps.page(ctx, pageURL)
	if err != nil {
		return "", err
	}
	for _, c := range s.Detail.extract(doc, base) {
		if !s.Deps.blocked(c.SourceURL) {
			return c.SourceURL, nil
		}
	}
	return "", nil
}
