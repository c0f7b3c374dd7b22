package flood

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestFloodgate(limit int) (*Floodgate, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	return newFloodgate(limit, clock.Now), clock
}

func TestFloodgate_Allow_AllowsNormalUsage(t *testing.T) {
	fg, _ := newTestFloodgate(3)

	for i := 0; i < 3; i++ {
		if !fg.Allow("chat1", "user1") {
			t.Errorf("Message %d should be allowed", i+1)
		}
	}

	if fg.Allow("chat1", "user1") {
		t.Error("4th message should be blocked")
	}
}

func TestFloodgate_Allow_Refills(t *testing.T) {
	fg, clock := newTestFloodgate(2)

	fg.Allow("chat1", "user1")
	fg.Allow("chat1", "user1")
	if fg.Allow("chat1", "user1") {
		t.Fatal("Third message should be blocked")
	}

	// One token returns every 30 seconds with a limit of 2 per minute.
	clock.Advance(30 * time.Second)
	if !fg.Allow("chat1", "user1") {
		t.Error("Message after refill should be allowed")
	}
	if fg.Allow("chat1", "user1") {
		t.Error("Only one token should have been refilled")
	}

	clock.Advance(time.Minute)
	for i := 0; i < 2; i++ {
		if !fg.Allow("chat1", "user1") {
			t.Errorf("Message %d after a full window should be allowed", i+1)
		}
	}
}

func TestFloodgate_Allow_PerUserPerChat(t *testing.T) {
	fg, _ := newTestFloodgate(1)

	if !fg.Allow("chat1", "user1") {
		t.Error("user1 in chat1 should be allowed")
	}
	if fg.Allow("chat1", "user1") {
		t.Error("second message of user1 in chat1 should be blocked")
	}
	if !fg.Allow("chat1", "user2") {
		t.Error("user2 in chat1 has its own bucket")
	}
	if !fg.Allow("chat2", "user1") {
		t.Error("user1 in chat2 has its own bucket")
	}
}

func TestFloodgate_DisabledLimit(t *testing.T) {
	fg, _ := newTestFloodgate(0)

	for i := 0; i < 100; i++ {
		if !fg.Allow("chat", "user") {
			t.Fatalf("Message %d should be allowed when flood control is disabled", i+1)
		}
	}
}

func TestFloodgate_ForgetIdle(t *testing.T) {
	fg, clock := newTestFloodgate(1)

	fg.Allow("chat1", "user1")
	clock.Advance(5 * time.Minute)
	fg.Allow("chat2", "user2")

	clock.Advance(6 * time.Minute)
	fg.forgetIdle()

	stats := fg.Stats()
	if stats.ActiveUsers != 1 {
		t.Errorf("ActiveUsers = %d, want 1 after forgetting idle users", stats.ActiveUsers)
	}
}

func TestFloodgate_Stats(t *testing.T) {
	fg, _ := newTestFloodgate(5)

	fg.Allow("chat1", "user1")
	fg.Allow("chat1", "user2")

	stats := fg.Stats()
	if stats.ActiveUsers != 2 {
		t.Errorf("ActiveUsers = %d, want 2", stats.ActiveUsers)
	}
	if stats.LimitPerMinute != 5 {
		t.Errorf("LimitPerMinute = %d, want 5", stats.LimitPerMinute)
	}
	if stats.WindowSeconds != 60 {
		t.Errorf("WindowSeconds = %d, want 60", stats.WindowSeconds)
	}
}

func TestFloodgate_StopIsIdempotent(t *testing.T) {
	fg := New(1)
	fg.Stop()
	fg.Stop()
}

func TestFloodgate_ConcurrentAccess(t *testing.T) {
	fg := New(10)
	defer fg.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				if fg.Allow("chat1", "user1") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
				fg.Stats()
			}
		}()
	}
	wg.Wait()

	if allowed < 10 || allowed > 11 {
		t.Errorf("allowed = %d, want the burst of 10 (plus at most one refill)", allowed)
	}
}
