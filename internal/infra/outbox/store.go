package outbox

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "staybook/internal/app/outbox"
)

// Delivery states shared by every durable ClaimStore.
const (
	StateNew     = "NEW"
	StateClaimed = "CLAIMED"
	StateSent    = "SENT"
	StateFailed  = "FAILED"
)

// ClaimLease bounds how long a crashed worker can hold a record.
const ClaimLease = time.Minute

// Store is the MongoDB outbox. Add runs inside the caller's session when ctx
// carries one, so records commit together with the booking change.
type Store struct {
	col *mongo.Collection
	now func() time.Time
}

func NewStore(db *mongo.Database) *Store {
	col := db.Collection("app_outbox")
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "next_attempt_at", Value: 1}}},
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "claimed_at", Value: 1}}},
	})
	return &Store{col: col, now: func() time.Time { return time.Now().UTC() }}
}

type recordDocument struct {
	ID          string            `bson:"_id"`
	Name        string            `bson:"name"`
	Payload     []byte            `bson:"payload"`
	OccurredAt  time.Time         `bson:"occurred_at"`
	Aggregate   string            `bson:"aggregate"`
	Headers     map[string]string `bson:"headers,omitempty"`
	State       string            `bson:"state"`
	Attempts    int               `bson:"attempts"`
	NextAttempt time.Time         `bson:"next_attempt_at"`
	CreatedAt   time.Time         `bson:"created_at"`
	ClaimedBy   string            `bson:"claimed_by,omitempty"`
	ClaimedAt   *time.Time        `bson:"claimed_at,omitempty"`
	SentAt      *time.Time        `bson:"sent_at,omitempty"`
	LastError   string            `bson:"last_error,omitempty"`
}

func (d recordDocument) envelope() *Envelope {
	return &Envelope{
		EventRecord: appoutbox.EventRecord{
			ID:         d.ID,
			Name:       d.Name,
			Payload:    d.Payload,
			OccurredAt: d.OccurredAt.UTC(),
			Aggregate:  d.Aggregate,
			Headers:    d.Headers,
		},
		Attempts: d.Attempts,
	}
}

func (s *Store) Add(ctx context.Context, record appoutbox.EventRecord) error {
	now := s.now()
	_, err := s.col.InsertOne(ctx, recordDocument{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     record.Payload,
		OccurredAt:  record.OccurredAt.UTC(),
		Aggregate:   record.Aggregate,
		Headers:     record.Headers,
		State:       StateNew,
		NextAttempt: now,
		CreatedAt:   now,
	})
	return err
}

// Flush is a no-op: the worker publishes committed records.
func (s *Store) Flush(context.Context) error {
	return nil
}

// Claim takes the oldest due record, or one whose claim lease expired.
// It returns nil when nothing is due.
func (s *Store) Claim(ctx context.Context, workerID string) (*Envelope, error) {
	now := s.now()
	filter := bson.M{"$or": bson.A{
		bson.M{"state": bson.M{"$in": bson.A{StateNew, StateFailed}}, "next_attempt_at": bson.M{"$lte": now}},
		bson.M{"state": StateClaimed, "claimed_at": bson.M{"$lte": now.Add(-ClaimLease)}},
	}}
	update := bson.M{"$set": bson.M{"state": StateClaimed, "claimed_by": workerID, "claimed_at": now}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "occurred_at", Value: 1}})

	var doc recordDocument
	if err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return doc.envelope(), nil
}

func (s *Store) MarkSent(ctx context.Context, id string) error {
	_, err := s.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"state": StateSent, "sent_at": s.now()}})
	return err
}

func (s *Store) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"state": StateFailed, "next_attempt_at": next.UTC(), "last_error": errMsg},
		"$inc": bson.M{"attempts": 1},
	})
	return err
}

var (
	_ appoutbox.Outbox = (*Store)(nil)
	_ ClaimStore       = (*Store)(nil)
)
