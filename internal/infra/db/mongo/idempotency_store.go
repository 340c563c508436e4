package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"staybook/internal/app/middleware"
)

type IdempotencyStore struct {
	col *mongo.Collection
}

func NewIdempotencyStore(db *mongo.Database, ttl time.Duration) *IdempotencyStore {
	col := db.Collection("app_idempotency")
	if ttl <= 0 {
		ttl = time.Hour * 24 * 7
	}
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(ttl.Seconds())),
	}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &IdempotencyStore{col: col}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	var doc idempotencyDocument
	if err := s.col.FindOne(ctx, bson.M{"_id": key}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	return doc.toRecord(), true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	doc := idempotencyDocument{
		Key:        rec.Key,
		Payload:    rec.Payload,
		OccurredAt: rec.OccurredAt,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := s.col.UpdateByID(ctx, doc.Key, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type idempotencyDocument struct {
	Key        string    `bson:"_id"`
	Payload    []byte    `bson:"payload"`
	OccurredAt time.Time `bson:"occurred_at"`
	CreatedAt  time.Time `bson:"created_at"`
}

func (d idempotencyDocument) toRecord() middleware.IdempotencyRecord {
	return middleware.IdempotencyRecord{Key: d.Key, Payload: d.Payload, OccurredAt: d.OccurredAt}
}
