package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"staybook/internal/app/middleware"
)

// IdempotencyStore keeps command results in app_idempotency. Rows older than
// ttl are treated as absent.
type IdempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewIdempotencyStore(db *gorm.DB, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &IdempotencyStore{db: db, ttl: ttl}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	var rec idempotencyRecord
	err := s.db.WithContext(ctx).
		Where("key = ? AND created_at > ?", key, time.Now().UTC().Add(-s.ttl)).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	return middleware.IdempotencyRecord{Key: rec.Key, Payload: rec.Payload, OccurredAt: rec.OccurredAt.UTC()}, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	row := idempotencyRecord{
		Key:        rec.Key,
		Payload:    rec.Payload,
		OccurredAt: rec.OccurredAt.UTC(),
		CreatedAt:  time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
