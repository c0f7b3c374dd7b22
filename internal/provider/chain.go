package provider

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.uber.org/zap"

	"trackhound/internal/core"
	"trackhound/pkg/fuzzy"
)

// Chain runs its steps in order and returns the first Found outcome. The
// workspace is emptied between steps.
type Chain struct {
	Label string
	Steps []core.Provider
	Pause time.Duration
	Deps  *Deps
}

func (c *Chain) Name() string { return c.Label }

func (c *Chain) SearchAndDownload(ctx context.Context, req *core.Request) core.Outcome {
	return runSteps(ctx, req, c.Label, c.Steps, c.Pause, c.Deps, false)
}

// Staged is a Chain whose later stages are fallbacks for a failing stage: the
// next stage runs only when the current one ends Transient. A stage that finds
// nothing ends the run with NotFound.
type Staged struct {
	Label  string
	Stages []core.Provider
	Pause  time.Duration
	Deps   *Deps
}

func (s *Staged) Name() string { return s.Label }

func (s *Staged) SearchAndDownload(ctx context.Context, req *core.Request) core.Outcome {
	return runSteps(ctx, req, s.Label, s.Stages, s.Pause, s.Deps, true)
}

func runSteps(ctx context.Context, req *core.Request, label string, steps []core.Provider,
	gap time.Duration, deps *Deps, stopOnNotFound bool,
) core.Outcome {
	var lastErr error
	for i, step := range steps {
		if i > 0 {
			clearDir(req.Dir)
			if !pause(ctx, gap) {
				return core.Transient(ctx.Err())
			}
		}

		out := step.SearchAndDownload(ctx, req)
		switch out.Status {
		case core.StatusFound:
			return out
		case core.StatusNotFound:
			if stopOnNotFound {
				return out
			}
		case core.StatusTransient:
			lastErr = out.Err
			deps.logger().Debug("Step failed",
				zap.String("provider", label), zap.String("step", step.Name()), zap.Error(out.Err))
		}
	}

	if lastErr != nil {
		return core.Transient(lastErr)
	}
	return core.NotFound()
}

// Variants runs one provider once per query variant: the query as given, with
// separators turned into spaces, and cut to its first words. With Enhance set
// and full metadata, quoted title/artist queries favouring originals follow.
type Variants struct {
	Label    string
	Provider core.Provider
	Pause    time.Duration
	Enhance  bool
	Deps     *Deps
}

func (v *Variants) Name() string { return v.Label }

func (v *Variants) SearchAndDownload(ctx context.Context, req *core.Request) core.Outcome {
	var lastErr error
	for i, query := range v.queries(req) {
		if i > 0 {
			clearDir(req.Dir)
			if !pause(ctx, v.Pause) {
				return core.Transient(ctx.Err())
			}
		}

		variant := *req
		variant.Query = query
		out := v.Provider.SearchAndDownload(ctx, &variant)
		switch out.Status {
		case core.StatusFound:
			return out
		case core.StatusTransient:
			lastErr = out.Err
		}
	}

	if lastErr != nil {
		return core.Transient(lastErr)
	}
	return core.NotFound()
}

func (v *Variants) queries(req *core.Request) []string {
	queries := fuzzy.SearchVariants(req.Query).All()
	if !v.Enhance {
		return queries
	}
	for _, q := range fuzzy.EnhanceSearchQuery(req.Query, req.Metadata)[1:] {
		if !slices.Contains(queries, q) {
			queries = append(queries, q)
		}
	}
	return queries
}

// Minimal downloads the first search result directly and, when the extractor
// does not report a path, takes the newest audio file written in the last 30s.
type Minimal struct {
	Label   string
	Target  string
	Timeout time.Duration
	Deps    *Deps
}

const freshWindow = 30 * time.Second

func (m *Minimal) Name() string { return m.Label }

func (m *Minimal) SearchAndDownload(ctx context.Context, req *core.Request) core.Outcome {
	if m.Deps.Runner == nil {
		return core.Transient(ErrNoRunner)
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOr(m.Timeout))
	defer cancel()

	target := expandTarget(m.Target, req.Query)
	p, err := m.Deps.Runner.Download(ctx, target, req.Dir, DownloadOptions{})
	if err == nil {
		return core.FoundPath(p, target)
	}
	if fresh, ok := freshAudio(req.Dir, time.Now().Add(-freshWindow)); ok {
		return core.FoundPath(fresh, target)
	}
	return core.Transient(err)
}

func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func clearDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		_ = os.RemoveAll(filepath.Join(dir, e.Name()))
	}
}
