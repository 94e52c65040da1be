package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory is a per-process sliding window limiter.
type Memory struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string][]time.Time
}

func NewMemory(limit int, window time.Duration) *Memory {
	return &Memory{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[string][]time.Time),
	}
}

func (m *Memory) Allow(_ context.Context, key string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	ts := prune(m.windows[key], now.Add(-m.window))

	if len(ts) >= m.limit {
		m.windows[key] = ts
		return Result{Allowed: false, Limit: m.limit, Remaining: 0, ResetAt: ts[0].Add(m.window)}, nil
	}
	ts = append(ts, now)
	m.windows[key] = ts
	return Result{
		Allowed:   true,
		Limit:     m.limit,
		Remaining: m.limit - len(ts),
		ResetAt:   ts[0].Add(m.window),
	}, nil
}

// Sweep drops keys whose windows have fully expired.
func (m *Memory) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-m.window)
	for k, ts := range m.windows {
		if ts = prune(ts, cutoff); len(ts) == 0 {
			delete(m.windows, k)
		} else {
			m.windows[k] = ts
		}
	}
}

// prune removes timestamps at or before cutoff. ts is ordered oldest first.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(ts); i++ {
		if ts[i].After(cutoff) {
			break
		}
	}
	return ts[i:]
}
