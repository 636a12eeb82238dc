package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"
)

// KeyPrefix namespaces limiter keys in Valkey.
const KeyPrefix = "marketsearch:rl:"

// windowStore is the consumer interface for sliding-window operations (ISP).
type windowStore interface {
	WindowAdd(ctx context.Context, key, member string, now time.Time, window time.Duration) (int64, error)
	WindowRemove(ctx context.Context, key, member string) error
	Ping(ctx context.Context) error
}

// Valkey is a sliding window log kept in one sorted set per key, so every
// replica draws on the same budget.
type Valkey struct {
	store windowStore
	now   func() time.Time
	seq   atomic.Uint64
	// instance disambiguates members written by different replicas in the same millisecond.
	instance string
}

// NewValkey creates a shared limiter. instance should be unique per process.
func NewValkey(s windowStore, instance string) *Valkey {
	return &Valkey{store: s, now: time.Now, instance: instance}
}

// Allow adds a hit and checks the window count. A hit over the limit is
// removed again so denied requests do not extend the caller's lockout.
func (v *Valkey) Allow(ctx context.Context, key string, limit int, win time.Duration) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	k := KeyPrefix + key
	member := v.instance + ":" + strconv.FormatUint(v.seq.Add(1), 36)

	n, err := v.store.WindowAdd(ctx, k, member, v.now(), win)
	if err != nil {
		return false, fmt.Errorf("ratelimit %s: %w", key, err)
	}
	if n <= int64(limit) {
		return true, nil
	}
	if err := v.store.WindowRemove(ctx, k, member); err != nil {
		return false, fmt.Errorf("ratelimit %s rollback: %w", key, err)
	}
	return false, nil
}

// Ping checks the backing store.
func (v *Valkey) Ping(ctx context.Context) error {
	return v.store.Ping(ctx)
}
