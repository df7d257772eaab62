package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter implements a sliding window rate limiter backed by Redis sorted sets.
// Rejected attempts are not recorded, so a blocked client regains capacity as
// soon as its oldest accepted request leaves the window.
type Limiter struct {
	Client *redis.Client
	Prefix string
	Now    func() time.Time
}

// Allow registers an event for the given key and returns whether it is within the limit.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, reset time.Time, err error) {
	now := l.now()
	if l.Client == nil || max <= 0 || window <= 0 {
		return true, max, now.Add(window), nil
	}

	cutoff := now.Add(-window).UnixMilli()
	redisKey := l.Prefix + key
	member := fmt.Sprintf("%d:%s", now.UnixNano(), uuid.NewString())

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%d", cutoff))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixMilli()), Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.Expire(ctx, redisKey, window)
	if _, err = pipe.Exec(ctx); err != nil {
		return false, 0, now.Add(window), err
	}

	reset = now.Add(window)
	if oldest := oldestCmd.Val(); len(oldest) == 1 {
		reset = time.UnixMilli(int64(oldest[0].Score)).Add(window)
	}

	current := int(countCmd.Val())
	if current > max {
		if err = l.Client.ZRem(ctx, redisKey, member).Err(); err != nil {
			return false, 0, reset, err
		}
		return false, 0, reset, nil
	}
	return true, max - current, reset, nil
}

func (l Limiter) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}
