package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/washlytics/tenant-onboarding/internal/core/port"
)

const defaultRateLimitPrefix = "onboarding:ratelimit"

// RateLimitRepository keeps per-endpoint, per-client attempt logs in Redis
// sorted sets scored by attempt time. Members carry the exact nanosecond
// timestamp; scores are only used for range trimming.
type RateLimitRepository struct {
	client    *redis.Client
	keyPrefix string
}

func NewRateLimitRepository(client *redis.Client, keyPrefix string) *RateLimitRepository {
	if keyPrefix == "" {
		keyPrefix = defaultRateLimitPrefix
	}
	return &RateLimitRepository{client: client, keyPrefix: keyPrefix}
}

// CountInWindow trims attempts older than windowStart in the same
// transaction that counts the survivors, so a concurrent request cannot
// observe a half-trimmed log.
func (r *RateLimitRepository) CountInWindow(ctx context.Context, key string, windowStart time.Time) (int, time.Time, error) {
	k := r.key(key)

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "-inf", fmt.Sprintf("(%d", windowStart.UnixNano()))
	countCmd := pipe.ZCard(ctx, k)
	oldestCmd := pipe.ZRange(ctx, k, 0, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("redis attempt window: %w", err)
	}

	count := int(countCmd.Val())
	if count == 0 {
		return 0, time.Time{}, nil
	}

	members := oldestCmd.Val()
	if len(members) == 0 {
		return count, time.Time{}, nil
	}

	ns, err := strconv.ParseInt(members[0], 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("parse oldest attempt: %w", err)
	}

	return count, time.Unix(0, ns), nil
}

// RecordAttempt appends the attempt and refreshes the key's TTL.
func (r *RateLimitRepository) RecordAttempt(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	k := r.key(key)
	ns := at.UnixNano()

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, k, redis.Z{Score: float64(ns), Member: strconv.FormatInt(ns, 10)})
	if ttl > 0 {
		pipe.Expire(ctx, k, ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis record attempt: %w", err)
	}

	return nil
}

func (r *RateLimitRepository) key(key string) string {
	return fmt.Sprintf("%s:%s", r.keyPrefix, key)
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)
