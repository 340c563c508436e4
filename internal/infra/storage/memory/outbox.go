package memory

import (
	"context"
	"errors"
	"sync"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	infraoutbox "staybook/internal/infra/outbox"
)

// Outbox keeps events in memory. Records added inside a write unit are held
// back until that unit commits; Flush then hands them to the publisher.
type Outbox struct {
	Publisher   infraoutbox.Producer
	TopicPrefix string
	Source      string

	mu      sync.Mutex
	pending []appoutbox.EventRecord
}

func NewOutbox(publisher infraoutbox.Producer) *Outbox {
	return &Outbox{Publisher: publisher}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if mu, ok := unit.(*Unit); ok && mu.stageRecord(record) {
			return nil
		}
	}
	o.enqueue(record)
	return nil
}

// Flush publishes every committed record. Records that fail to publish stay
// queued for the next flush.
func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	batch := o.pending
	o.pending = nil
	o.mu.Unlock()
	if len(batch) == 0 || o.Publisher == nil {
		return nil
	}

	var (
		failed []appoutbox.EventRecord
		errs   []error
	)
	for _, rec := range batch {
		payload, headers, err := infraoutbox.CloudEvent(rec, o.Source)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		topic := infraoutbox.TopicFor(o.TopicPrefix, rec.Name)
		if err := o.Publisher.Publish(ctx, topic, rec.Aggregate, payload, headers); err != nil {
			failed = append(failed, rec)
			errs = append(errs, err)
		}
	}
	if len(failed) > 0 {
		o.mu.Lock()
		o.pending = append(failed, o.pending...)
		o.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Pending returns a copy of the committed, unpublished records.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, len(o.pending))
	copy(out, o.pending)
	return out
}

func (o *Outbox) enqueue(records ...appoutbox.EventRecord) {
	if len(records) == 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, records...)
}

var _ appoutbox.Outbox = (*Outbox)(nil)
