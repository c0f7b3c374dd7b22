package acquire

import (
	"sync"
	"time"
)

const statsDateLayout = "2006-01-02"

// Stats counts acquisitions for the current UTC day. Counters reset when the
// first event of a new day arrives.
type Stats struct {
	mu          sync.Mutex
	now         func() time.Time
	day         string
	requests    int
	successes   int
	failures    int
	providerWin map[string]int
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Date         string         `json:"date"`
	Requests     int            `json:"requests"`
	Successes    int            `json:"successes"`
	Failures     int            `json:"failures"`
	SuccessRate  float64        `json:"success_rate"`
	ProviderWins map[string]int `json:"provider_wins"`
}

// NewStats creates daily stats; a nil clock means time.Now.
func NewStats(now func() time.Time) *Stats {
	if now == nil {
		now = time.Now
	}
	s := &Stats{now: now}
	s.reset(s.today())
	return s
}

func (s *Stats) RecordRequest() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rollover()
	s.requests++
}

func (s *Stats) RecordSuccess(provider string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rollover()
	s.successes++
	if provider != "" {
		s.providerWin[provider]++
	}
}

func (s *Stats) RecordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rollover()
	s.failures++
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rollover()

	wins := make(map[string]int, len(s.providerWin))
	for k, v := range s.providerWin {
		wins[k] = v
	}

	var rate float64
	if finished := s.successes + s.failures; finished > 0 {
		rate = float64(s.successes) / float64(finished)
	}

	return StatsSnapshot{
		Date:         s.day,
		Requests:     s.requests,
		Successes:    s.successes,
		Failures:     s.failures,
		SuccessRate:  rate,
		ProviderWins: wins,
	}
}

func (s *Stats) today() string {
	return s.now().UTC().Format(statsDateLayout)
}

// rollover resets the counters on a new UTC day. Callers hold mu.
func (s *Stats) rollover() {
	if today := s.today(); today != s.day {
		s.reset(today)
	}
}

func (s *Stats) reset(day string) {
	s.day = day
	s.requests = 0
	s.successes = 0
	s.failures = 0
	s.providerWin = make(map[string]int)
}
