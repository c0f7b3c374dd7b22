package provider

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"trackhound/internal/core"
)

// Extractor lists a search target through the extractor, ranks the listing and
// downloads the best entry.
type Extractor struct {
	Label string
	// Targets are extractor search prefixes ("scsearch10:{q}") or search page
	// URLs. {q} is replaced with the query, escaped only inside URLs.
	Targets []string
	Rank    Rank
	Options DownloadOptions
	Timeout time.Duration
	Deps    *Deps
}

func (e *Extractor) Name() string { return e.Label }

func (e *Extractor) SearchAndDownload(ctx context.Context, req *core.Request) core.Outcome {
	if e.Deps.Runner == nil {
		return core.Transient(ErrNoRunner)
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOr(e.Timeout))
	defer cancel()

	var lastErr error
	for _, target := range e.Targets {
		if err := ctx.Err(); err != nil {
			return core.Transient(err)
		}

		best, err := e.best(ctx, expandTarget(target, req.Query), req.Metadata)
		if err != nil {
			lastErr = err
			continue
		}
		if best == "" {
			continue
		}

		out := e.Deps.save(ctx, FetchExtractor, best, "", req, e.Options)
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

func (e *Extractor) best(ctx context.Context, target string, meta *core.TrackMetadata) (string, error) {
	listing, err := e.Deps.Runner.List(ctx, target)
	if err != nil {
		return "", err
	}

	var usable []core.Candidate
	for _, c := range listing {
		if !e.Deps.blocked(c.SourceURL) {
			usable = append(usable, c)
		}
	}
	ranked := order(e.Rank, usable, meta)
	if len(ranked) == 0 {
		e.Deps.logger().Debug("Listing had no usable entries",
			zap.String("provider", e.Label), zap.String("target", target), zap.Int("listed", len(listing)))
		return "", nil
	}
	return ranked[0].SourceURL, nil
}

func expandTarget(target, query string) string {
	if strings.Contains(target, "://") {
		return fillQuery(target, query, false)
	}
	return strings.ReplaceAll(target, "{q}", query)
}
