// Package ratelimit implements sliding-window hit counters: an in-process
// log and a Valkey sorted set shared between replicas.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultSweepInterval is how often idle keys are evicted from Memory.
const DefaultSweepInterval = time.Minute

type window struct {
	hits   []time.Time
	window time.Duration
}

// Memory is an in-process sliding window log. Safe for concurrent use.
type Memory struct {
	mu         sync.Mutex
	keys       map[string]*window
	now        func() time.Time
	sweepEvery time.Duration
	lastSweep  time.Time
}

// NewMemory creates an in-memory limiter.
func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock creates an in-memory limiter driven by now.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{
		keys:       make(map[string]*window),
		now:        now,
		sweepEvery: DefaultSweepInterval,
		lastSweep:  now(),
	}
}

// Allow records a hit for key when fewer than limit hits fall inside the
// trailing window. Denied hits are not recorded.
func (m *Memory) Allow(_ context.Context, key string, limit int, win time.Duration) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepLocked(now)

	w, ok := m.keys[key]
	if !ok {
		w = &window{}
		m.keys[key] = w
	}
	w.window = win
	w.hits = trim(w.hits, now.Add(-win))

	if len(w.hits) >= limit {
		return false, nil
	}
	w.hits = append(w.hits, now)
	return true, nil
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// sweepLocked drops keys whose newest hit has left its window.
func (m *Memory) sweepLocked(now time.Time) {
	if now.Sub(m.lastSweep) < m.sweepEvery {
		return
	}
	m.lastSweep = now
	for k, w := range m.keys {
		if len(w.hits) == 0 || !w.hits[len(w.hits)-1].After(now.Add(-w.window)) {
			delete(m.keys, k)
		}
	}
}

// trim removes hits at or before cutoff. hits is sorted ascending.
func trim(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}
