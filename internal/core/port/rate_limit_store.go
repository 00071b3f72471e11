package port

import (
	"context"
	"time"
)

// RateLimitStore is a sliding-window attempt log keyed per throttled
// endpoint and client, used to rate limit the verification and
// registration routes.
type RateLimitStore interface {
	// CountInWindow drops attempts older than windowStart and reports how many
	// remain plus the oldest retained attempt time (zero when the log is empty).
	CountInWindow(ctx context.Context, key string, windowStart time.Time) (int, time.Time, error)
	// RecordAttempt appends an attempt and bounds the key's lifetime to ttl.
	RecordAttempt(ctx context.Context, key string, at time.Time, ttl time.Duration) error
}
