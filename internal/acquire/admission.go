package acquire

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"trackhound/internal/core"
)

// Searcher runs one acquisition; *Orchestrator is the production implementation.
type Searcher interface {
	SearchAndDownload(ctx context.Context, query string, meta *core.TrackMetadata) core.Result
}

// Admission bounds how many acquisitions run at once. Callers beyond the limit
// wait for a free slot until their context is done.
type Admission struct {
	slots    *semaphore.Weighted
	limit    int
	active   atomic.Int64
	searcher Searcher
	stats    *Stats
	recorder Recorder
	logger   *zap.Logger
}

// NewAdmission wraps searcher with maxConcurrent slots. stats may be nil.
func NewAdmission(maxConcurrent int, searcher Searcher, stats *Stats, logger *zap.Logger) *Admission {
	if maxConcurrent <= 0 {
		maxConcurrent = core.DefaultMaxConcurrentDownloads
	}
	if stats == nil {
		stats = NewStats(nil)
	}
	return &Admission{
		slots:    semaphore.NewWeighted(int64(maxConcurrent)),
		limit:    maxConcurrent,
		searcher: searcher,
		stats:    stats,
		recorder: nopRecorder{},
		logger:   logger,
	}
}

// SetRecorder installs a metrics recorder for the active gauge.
func (a *Admission) SetRecorder(r Recorder) {
	if r != nil {
		a.recorder = r
	}
}

// Run waits for a slot and runs one acquisition in it. The slot is released
// and the active count restored however the acquisition ends, including a panic.
func (a *Admission) Run(ctx context.Context, query string, meta *core.TrackMetadata) (result core.Result) {
	if err := a.slots.Acquire(ctx, 1); err != nil {
		return core.Failed(fmt.Errorf("failed to acquire download slot: %w", err))
	}
	defer a.slots.Release(1)

	a.recorder.ActiveDownloads(a.active.Add(1))
	defer func() {
		a.recorder.ActiveDownloads(a.active.Add(-1))
	}()

	a.stats.RecordRequest()

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Acquisition panicked", zap.String("query", query), zap.Any("panic", r))
			result = core.Failed(fmt.Errorf("acquisition panicked: %v", r))
		}
		if result.Success {
			a.stats.RecordSuccess(result.ProviderName)
		} else {
			a.stats.RecordFailure()
		}
	}()

	return a.searcher.SearchAndDownload(ctx, query, meta)
}

// Active returns the number of acquisitions currently running.
func (a *Admission) Active() int64 {
	return a.active.Load()
}

// Limit returns the configured number of slots.
func (a *Admission) Limit() int {
	return a.limit
}

// Stats returns today's counters.
func (a *Admission) Stats() StatsSnapshot {
	return a.stats.Snapshot()
}
