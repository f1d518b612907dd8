package signal

import (
	"sync"
	"time"

	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
)

// RoomRateLimiter is a per-user sliding window over chat messages.
type RoomRateLimiter struct {
	mu       sync.Mutex
	history  map[domain.UserID][]time.Time
	limit    int
	interval time.Duration
	now      core.Clock
}

func NewRoomRateLimiter(limit int, interval time.Duration, now core.Clock) *RoomRateLimiter {
	if now == nil {
		now = core.SystemClock
	}
	return &RoomRateLimiter{
		history:  make(map[domain.UserID][]time.Time),
		limit:    limit,
		interval: interval,
		now:      now,
	}
}

func (rl *RoomRateLimiter) Allow(uid domain.UserID) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[uid]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[uid] = fresh
		return false
	}

	rl.history[uid] = append(fresh, now)
	return true
}

