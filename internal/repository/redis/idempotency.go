package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/washlytics/tenant-onboarding/internal/core/port"
	"github.com/washlytics/tenant-onboarding/internal/repository"
)

const defaultIdempotencyPrefix = "idempotency"

// IdempotencyRepository stores serialized submission results keyed by the
// client-supplied idempotency key.
type IdempotencyRepository struct {
	client *red.Client
	prefix string
}

// NewIdempotencyRepository constructs an idempotency store with the provided
// Redis client and key prefix.
func NewIdempotencyRepository(client *red.Client, keyPrefix string) *IdempotencyRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultIdempotencyPrefix
	}

	return &IdempotencyRepository{client: client, prefix: prefix}
}

// GetResult returns the stored payload for the key, or repository.ErrNotFound
// when the key has never been seen (or has expired).
func (r *IdempotencyRepository) GetResult(ctx context.Context, key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("idempotency key is required")
	}

	payload, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get idempotency result: %w", err)
	}

	return payload, nil
}

// SaveResult stores the payload under the key for the supplied TTL.
func (r *IdempotencyRepository) SaveResult(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return errors.New("idempotency key is required")
	case len(payload) == 0:
		return errors.New("payload is required")
	case ttl <= 0:
		return errors.New("ttl must be positive")
	}

	if err := r.client.Set(ctx, r.key(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis save idempotency result: %w", err)
	}

	return nil
}

func (r *IdempotencyRepository) key(key string) string {
	return fmt.Sprintf("%s:%s", r.prefix, key)
}

var _ port.IdempotencyStore = (*IdempotencyRepository)(nil)
