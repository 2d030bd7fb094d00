// Package dedup provides event deduplication keyed by provider message ID.
//
// Features:
//   - O(1) first-seen checks
//   - TTL-based expiry of remembered IDs
//   - Periodic sweeps to prevent memory growth
//   - Thread-safe implementation
package dedup

import (
	"sync"
	"time"
)

// DefaultTTL is how long a message ID is remembered. Provider redeliveries
// arrive within seconds; an hour gives a wide safety margin.
const DefaultTTL = time.Hour

const defaultSweepInterval = 10 * time.Minute

// Tracker remembers message IDs for a TTL window.
type Tracker struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// New creates a tracker. A non-positive ttl falls back to DefaultTTL.
func New(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{
		ttl:  ttl,
		now:  time.Now,
		seen: make(map[string]time.Time),
	}
}

// SetClock overrides the time source, for tests.
func (t *Tracker) SetClock(now func() time.Time) { t.now = now }

// Seen reports whether id was already observed inside the TTL window and
// records it either way. An empty id is never deduplicated: dropping events
// without identity would lose real messages.
func (t *Tracker) Seen(id string) bool {
	if id == "" {
		return false
	}
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	at, ok := t.seen[id]
	t.seen[id] = now
	return ok && now.Sub(at) < t.ttl
}

// Size returns how many IDs are currently remembered.
func (t *Tracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}

// Sweep removes entries older than the TTL and returns how many were removed.
// Should be called periodically to prevent memory growth.
func (t *Tracker) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, at := range t.seen {
		if now.Sub(at) >= t.ttl {
			delete(t.seen, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs periodic sweeps in the background and returns a stop
// function. A non-positive interval falls back to the default.
func (t *Tracker) StartSweeper(interval time.Duration) func() {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				t.Sweep(t.now())
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}
