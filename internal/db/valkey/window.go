package valkey

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/marketsearch/internal/db"
)

// WindowAdd records member at now in the sorted set at key, trims entries
// older than window and returns the number of entries left, member included.
// The four commands go out in one DoMulti round-trip.
func (s *Store) WindowAdd(
	ctx context.Context, key, member string, now time.Time, window time.Duration,
) (int64, error) {
	nowMs := now.UnixMilli()
	cutoff := nowMs - window.Milliseconds()
	b := s.client.B()

	cmds := rueidis.Commands{
		b.Zremrangebyscore().Key(key).Min("-inf").Max(strconv.FormatInt(cutoff, 10)).Build(),
		b.Zadd().Key(key).ScoreMember().ScoreMember(float64(nowMs), member).Build(),
		b.Zcard().Key(key).Build(),
		b.Pexpire().Key(key).Milliseconds(window.Milliseconds()).Build(),
	}

	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		if err := res.Error(); err != nil {
			return 0, &db.Error{Op: db.OpWindow, Err: fmt.Errorf("key %s cmd %d: %w", key, i, err)}
		}
	}

	n, err := results[2].AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpWindow, Err: fmt.Errorf("key %s: %w", key, err)}
	}
	return n, nil
}

// WindowRemove deletes member from the sorted set at key.
func (s *Store) WindowRemove(ctx context.Context, key, member string) error {
	cmd := s.client.B().Zrem().Key(key).Member(member).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZRem, Err: err}
	}
	return nil
}
