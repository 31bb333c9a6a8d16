package signal

import (
	"sync"
	"time"

	"github.com/peersight/server/internal/domain"
)

// EventRateLimiter caps room-mutating events (join, admin subscribe)
// per connection over a sliding window. Events over the limit are
// dropped silently, same as any other ignored input.
type EventRateLimiter struct {
	mu       sync.Mutex
	history  map[domain.ConnID][]time.Time
	limit    int
	interval time.Duration
}

func NewEventRateLimiter(limit int, interval time.Duration) *EventRateLimiter {
	return &EventRateLimiter{
		history:  make(map[domain.ConnID][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *EventRateLimiter) Allow(connID domain.ConnID) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[connID]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[connID] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[connID] = fresh
	return true
}

// Forget drops the connection's window on disconnect so the map does
// not grow with dead connection ids.
func (rl *EventRateLimiter) Forget(connID domain.ConnID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, connID)
}
