// Package acquire runs the provider cascade for a single track and bounds how
// many cascades run at once.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"trackhound/internal/core"
)

var (
	// ErrExhausted means every provider in the cascade came back empty
	ErrExhausted = errors.New("no provider produced a usable file")
	// ErrProviderPanic wraps a panic recovered from a provider
	ErrProviderPanic = errors.New("provider panicked")
)

const maxWorkspaceSlugLen = 48

// Entry is one step of the cascade.
type Entry struct {
	Provider core.Provider
	// DelayAfter is the pause before the next entry runs.
	DelayAfter time.Duration
}

// Recorder receives acquisition metrics.
type Recorder interface {
	ProviderOutcome(provider, outcome string)
	Acquisition(status string, duration time.Duration)
	ActiveDownloads(n int64)
}

type nopRecorder struct{}

func (nopRecorder) ProviderOutcome(string, string)    {}
func (nopRecorder) Acquisition(string, time.Duration) {}
func (nopRecorder) ActiveDownloads(int64)             {}

// Orchestrator tries providers strictly in order until one yields a file that
// survives post-processing.
type Orchestrator struct {
	config     *core.DownloadConfig
	entries    []Entry
	transcoder Transcoder
	tagger     Tagger
	blocklist  core.SourceFilter
	recorder   Recorder
	logger     *zap.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an orchestrator over entries. transcoder handles
// non-mp3 downloads; tagger may be nil.
func NewOrchestrator(
	config *core.DownloadConfig,
	entries []Entry,
	transcoder Transcoder,
	tagger Tagger,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		config:     config,
		entries:    entries,
		transcoder: transcoder,
		tagger:     tagger,
		recorder:   nopRecorder{},
		logger:     logger,
		sleep:      sleepContext,
	}
}

// SetRecorder installs a metrics recorder.
func (o *Orchestrator) SetRecorder(r Recorder) {
	if r != nil {
		o.recorder = r
	}
}

// SetBlocklist installs the filter that learns bad source URLs.
func (o *Orchestrator) SetBlocklist(b core.SourceFilter) {
	o.blocklist = b
}

// Providers returns the names of the cascade entries in order.
func (o *Orchestrator) Providers() []string {
	names := make([]string, 0, len(o.entries))
	for _, e := range o.entries {
		names = append(names, e.Provider.Name())
	}
	return names
}

// SearchAndDownload runs the cascade for one track. On success the returned
// result points at a tagged mp3 inside a fresh workspace that the caller
// releases with Result.Discard. On failure nothing is left behind.
func (o *Orchestrator) SearchAndDownload(ctx context.Context, query string, meta *core.TrackMetadata) core.Result {
	start := time.Now()
	logger := o.logger.With(zap.String("query", query))

	workspace, err := o.createWorkspace(query)
	if err != nil {
		logger.Error("Failed to create workspace", zap.Error(err))
		o.recorder.Acquisition("error", time.Since(start))
		return core.Failed(err)
	}

	req := &core.Request{Query: query, Metadata: meta, Dir: workspace}

	for i, entry := range o.entries {
		if err := ctx.Err(); err != nil {
			o.removeWorkspace(workspace)
			o.recorder.Acquisition("cancelled", time.Since(start))
			return core.Failed(err)
		}

		name := entry.Provider.Name()
		outcome := o.try(ctx, entry.Provider, req)
		o.recorder.ProviderOutcome(name, outcome.Status.String())

		switch outcome.Status {
		case core.StatusFound:
			file, err := o.finalize(ctx, outcome.File, meta)
			if err != nil {
				logger.Error("Failed to post-process download",
					zap.String("provider", name),
					zap.String("source", outcome.File.SourceURL),
					zap.Error(err))
				if errors.Is(err, ErrUnsupportedFormat) || errors.Is(err, ErrUndersized) {
					o.block(outcome.File.SourceURL)
				}
				o.removeWorkspace(workspace)
				o.recorder.Acquisition("error", time.Since(start))
				return core.Failed(err)
			}

			logger.Info("Provider succeeded",
				zap.String("provider", name),
				zap.String("file", filepath.Base(file.Path)),
				zap.Int64("size", file.Size),
				zap.Duration("elapsed", time.Since(start)))
			o.recorder.Acquisition("success", time.Since(start))
			return core.NewResult(file, name, workspace)

		case core.StatusTransient:
			logger.Warn("Provider failed", zap.String("provider", name), zap.Error(outcome.Err))
		default:
			logger.Debug("Provider found nothing", zap.String("provider", name))
		}

		o.resetWorkspace(workspace)

		if i < len(o.entries)-1 && entry.DelayAfter > 0 {
			if err := o.sleep(ctx, entry.DelayAfter); err != nil {
				o.removeWorkspace(workspace)
				o.recorder.Acquisition("cancelled", time.Since(start))
				return core.Failed(err)
			}
		}
	}

	logger.Warn("All providers exhausted", zap.Int("providers", len(o.entries)))
	o.removeWorkspace(workspace)
	o.recorder.Acquisition("not_found", time.Since(start))
	return core.Failed(ErrExhausted)
}

// try runs a provider and turns a panic or an unverifiable file into Transient.
func (o *Orchestrator) try(ctx context.Context, p core.Provider, req *core.Request) (outcome core.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = core.Transient(fmt.Errorf("%w: %v", ErrProviderPanic, r))
		}
	}()

	outcome = p.SearchAndDownload(ctx, req)
	if outcome.Status != core.StatusFound {
		return outcome
	}
	if outcome.File == nil {
		return core.Transient(errors.New("provider reported a file without a path"))
	}

	info, err := os.Stat(outcome.File.Path)
	if err != nil {
		return core.Transient(fmt.Errorf("failed to verify downloaded file: %w", err))
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return core.NotFound()
	}
	outcome.File.Size = info.Size()
	return outcome
}

func (o *Orchestrator) createWorkspace(query string) (string, error) {
	if err := os.MkdirAll(o.config.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	name := slug.Make(query)
	if len(name) > maxWorkspaceSlugLen {
		name = strings.TrimRight(name[:maxWorkspaceSlugLen], "-")
	}
	if name == "" {
		name = "track"
	}

	dir := filepath.Join(o.config.OutputDir, name+"-"+uuid.NewString()[:8])
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create workspace: %w", err)
	}
	return dir, nil
}

// resetWorkspace drops whatever a failed provider left behind.
func (o *Orchestrator) resetWorkspace(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			o.logger.Warn("Failed to remove leftover file", zap.String("file", e.Name()), zap.Error(err))
		}
	}
}

func (o *Orchestrator) removeWorkspace(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		o.logger.Warn("Failed to remove workspace", zap.String("dir", dir), zap.Error(err))
	}
}

func (o *Orchestrator) block(sourceURL string) {
	if o.blocklist != nil && sourceURL != "" {
		o.blocklist.Add(sourceURL)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
