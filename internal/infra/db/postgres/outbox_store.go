package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appoutbox "staybook/internal/app/outbox"
	infraoutbox "staybook/internal/infra/outbox"
)

// OutboxStore is the SQL transactional outbox drained by infra/outbox.Worker.
type OutboxStore struct {
	db *gorm.DB
}

func NewOutboxStore(db *gorm.DB) *OutboxStore {
	return &OutboxStore{db: db}
}

// Add writes into the caller's transaction when ctx carries one. The insert
// runs under a savepoint so a failed outbox write leaves the booking change intact.
func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	now := time.Now().UTC()
	rec := outboxRecord{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     record.Payload,
		OccurredAt:  record.OccurredAt.UTC(),
		Aggregate:   record.Aggregate,
		Headers:     record.Headers,
		State:       infraoutbox.StateNew,
		NextAttempt: now,
		CreatedAt:   now,
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	tx, ok := txFromContext(ctx)
	if !ok {
		return s.db.WithContext(ctx).Create(&rec).Error
	}
	const sp = "outbox_add"
	if err := tx.SavePoint(sp).Error; err != nil {
		return err
	}
	if err := tx.Create(&rec).Error; err != nil {
		_ = tx.RollbackTo(sp).Error
		return err
	}
	return nil
}

// Flush is a no-op: the worker publishes committed records.
func (s *OutboxStore) Flush(context.Context) error {
	return nil
}

func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.Envelope, error) {
	var claimed *infraoutbox.Envelope
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		q := tx.Where("(state IN ? AND next_attempt_at <= ?) OR (state = ? AND claimed_at <= ?)",
			[]string{infraoutbox.StateNew, infraoutbox.StateFailed}, now, infraoutbox.StateClaimed, now.Add(-infraoutbox.ClaimLease)).
			Order("occurred_at").
			Limit(1)
		if isPostgres(tx) {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		var rec outboxRecord
		res := q.Find(&rec)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.Model(&outboxRecord{}).Where("id = ?", rec.ID).Updates(map[string]any{
			"state":      infraoutbox.StateClaimed,
			"claimed_by": workerID,
			"claimed_at": now,
		}).Error; err != nil {
			return err
		}
		claimed = &infraoutbox.Envelope{
			EventRecord: appoutbox.EventRecord{
				ID:         rec.ID,
				Name:       rec.Name,
				Payload:    rec.Payload,
				OccurredAt: rec.OccurredAt.UTC(),
				Aggregate:  rec.Aggregate,
				Headers:    rec.Headers,
			},
			Attempts: rec.Attempts,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&outboxRecord{}).Where("id = ?", id).Updates(map[string]any{
		"state":   infraoutbox.StateSent,
		"sent_at": now,
	}).Error
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	return s.db.WithContext(ctx).Model(&outboxRecord{}).Where("id = ?", id).Updates(map[string]any{
		"state":           infraoutbox.StateFailed,
		"next_attempt_at": next.UTC(),
		"last_error":      errMsg,
		"attempts":        gorm.Expr("attempts + 1"),
	}).Error
}

var _ appoutbox.Outbox = (*OutboxStore)(nil)
var _ infraoutbox.ClaimStore = (*OutboxStore)(nil)
