package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"staybook/internal/app/middleware"
)

const keyPrefix = "staybook:idempotency:"

// IdempotencyStore keeps command results in Redis with a TTL.
type IdempotencyStore struct {
	client goredis.Cmdable
	ttl    time.Duration
}

func NewIdempotencyStore(client goredis.Cmdable, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	var rec middleware.IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	return rec, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+rec.Key, raw, s.ttl).Err()
}

// Ping is used by the readiness check.
func (s *IdempotencyStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
