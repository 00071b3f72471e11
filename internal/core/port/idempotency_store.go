package port

import (
	"context"
	"time"
)

// IdempotencyStore deduplicates mutating submissions by client-supplied key.
// A retried submit with the same key replays the stored result instead of
// creating a second account or tenant.
type IdempotencyStore interface {
	GetResult(ctx context.Context, key string) ([]byte, error)
	SaveResult(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}
