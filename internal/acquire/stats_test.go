package acquire

import (
	"sync"
	"testing"
	"time"
)

func TestStats_Counts(t *testing.T) {
	stats := NewStats(nil)

	stats.RecordRequest()
	stats.RecordRequest()
	stats.RecordRequest()
	stats.RecordSuccess("JioSaavn")
	stats.RecordSuccess("JioSaavn")
	stats.RecordFailure()

	s := stats.Snapshot()
	if s.Requests != 3 || s.Successes != 2 || s.Failures != 1 {
		t.Errorf("snapshot = %+v", s)
	}
	if s.ProviderWins["JioSaavn"] != 2 {
		t.Errorf("ProviderWins = %v, want JioSaavn:2", s.ProviderWins)
	}
	if s.SuccessRate < 0.66 || s.SuccessRate > 0.67 {
		t.Errorf("SuccessRate = %f, want 2/3", s.SuccessRate)
	}
}

func TestStats_ResetsAtUTCMidnight(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	stats := NewStats(clock)
	stats.RecordRequest()
	stats.RecordSuccess("YouTube")

	if got := stats.Snapshot().Date; got != "2024-03-10" {
		t.Errorf("Date = %q, want 2024-03-10", got)
	}

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	s := stats.Snapshot()
	if s.Date != "2024-03-11" {
		t.Errorf("Date = %q, want 2024-03-11", s.Date)
	}
	if s.Requests != 0 || s.Successes != 0 || len(s.ProviderWins) != 0 {
		t.Errorf("counters not reset: %+v", s)
	}
}

func TestStats_UsesUTCDay(t *testing.T) {
	zone := time.FixedZone("UTC+3", 3*60*60)
	// 01:00 local is still the previous day in UTC.
	local := time.Date(2024, 3, 11, 1, 0, 0, 0, zone)

	stats := NewStats(func() time.Time { return local })
	if got := stats.Snapshot().Date; got != "2024-03-10" {
		t.Errorf("Date = %q, want 2024-03-10", got)
	}
}

func TestStats_SnapshotIsCopy(t *testing.T) {
	stats := NewStats(nil)
	stats.RecordSuccess("A")

	s := stats.Snapshot()
	s.ProviderWins["A"] = 100

	if stats.Snapshot().ProviderWins["A"] != 1 {
		t.Error("Snapshot must not expose internal state")
	}
}
