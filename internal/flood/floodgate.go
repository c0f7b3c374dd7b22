// Package flood limits how fast a single user can submit requests.
package flood

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// window is the period the per-user limit refers to
	window = time.Minute
	// cleanupInterval is how often idle users are forgotten
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long a user must be quiet before being forgotten
	idleTimeout = 10 * time.Minute
)

// Floodgate gives every (chat, user) pair a token bucket that holds
// limitPerMinute tokens and refills one token every window/limitPerMinute.
type Floodgate struct {
	limitPerMinute int
	users          map[string]*userBucket
	mutex          sync.Mutex
	now            func() time.Time
	stopCleanup    chan struct{}
	stopOnce       sync.Once
}

type userBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a Floodgate and starts its background cleanup. A non-positive
// limit disables flood control.
func New(limitPerMinute int) *Floodgate {
	fg := newFloodgate(limitPerMinute, time.Now)
	go fg.cleanup()
	return fg
}

func newFloodgate(limitPerMinute int, now func() time.Time) *Floodgate {
	return &Floodgate{
		limitPerMinute: limitPerMinute,
		users:          make(map[string]*userBucket),
		now:            now,
		stopCleanup:    make(chan struct{}),
	}
}

// Stop ends the background cleanup. It is safe to call more than once.
func (fg *Floodgate) Stop() {
	fg.stopOnce.Do(func() { close(fg.stopCleanup) })
}

// Allow reports whether a message from userID in chatID may be processed and
// consumes a token when it may.
func (fg *Floodgate) Allow(chatID, userID string) bool {
	if fg.limitPerMinute <= 0 {
		return true
	}

	key := chatID + ":" + userID
	now := fg.now()

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	bucket, ok := fg.users[key]
	if !ok {
		every := rate.Every(window / time.Duration(fg.limitPerMinute))
		bucket = &userBucket{limiter: rate.NewLimiter(every, fg.limitPerMinute)}
		fg.users[key] = bucket
	}
	bucket.lastSeen = now

	return bucket.limiter.AllowN(now, 1)
}

func (fg *Floodgate) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fg.forgetIdle()
		case <-fg.stopCleanup:
			return
		}
	}
}

func (fg *Floodgate) forgetIdle() {
	cutoff := fg.now().Add(-idleTimeout)

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	for key, bucket := range fg.users {
		if bucket.lastSeen.Before(cutoff) {
			delete(fg.users, key)
		}
	}
}

// Stats returns the current floodgate state for the stats endpoint.
func (fg *Floodgate) Stats() Stats {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	return Stats{
		ActiveUsers:    len(fg.users),
		LimitPerMinute: fg.limitPerMinute,
		WindowSeconds:  int(window.Seconds()),
	}
}

type Stats struct {
	ActiveUsers    int `json:"active_users"`
	LimitPerMinute int `json:"limit_per_minute"`
	WindowSeconds  int `json:"window_seconds"`
}
