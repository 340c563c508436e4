package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
)

var blockingStatuses = []string{string(domainbooking.StatusPending), string(domainbooking.StatusConfirmed)}

type BookingRepository struct {
	db   *gorm.DB
	unit *Unit
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.ID) (*domainbooking.Booking, error) {
	var rec bookingRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return rec.toAggregate(), nil
}

func (r *BookingRepository) ListByProperty(ctx context.Context, propertyID domainproperty.ID) ([]*domainbooking.Booking, error) {
	return r.list(r.db.WithContext(ctx).Where("property_id = ?", string(propertyID)).Order("check_in, id"))
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.list(r.db.WithContext(ctx).Where("guest_id = ?", guestID).Order("created_at DESC"))
}

func (r *BookingRepository) ListDueForCompletion(ctx context.Context, checkOutBefore time.Time, limit int) ([]*domainbooking.Booking, error) {
	q := r.db.WithContext(ctx).
		Where("status = ? AND check_out < ?", string(domainbooking.StatusConfirmed), checkOutBefore.UTC()).
		Order("check_out")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return r.list(q)
}

// Insert checks for overlaps itself so the rule holds on engines without the
// exclusion constraint; on PostgreSQL the constraint decides concurrent races.
func (r *BookingRepository) Insert(ctx context.Context, b *domainbooking.Booking) error {
	if r.unit != nil {
		r.unit.inserted = true
	}
	db := r.db.WithContext(ctx)
	if b.Status.HoldsDates() {
		var clash bookingRecord
		err := db.Where("property_id = ? AND status IN ? AND check_in < ? AND check_out > ?",
			string(b.PropertyID), blockingStatuses, b.Range.CheckOut, b.Range.CheckIn).
			Limit(1).Find(&clash).Error
		if err != nil {
			return mapInsertError(err)
		}
		if clash.ID != "" {
			return fmt.Errorf("%w: %s overlaps booking %s on %s", domainbooking.ErrBookingConflict, b.Range, clash.ID, b.PropertyID)
		}
	}
	rec := newBookingRecord(b)
	rec.Version = 1
	if err := db.Create(&rec).Error; err != nil {
		return mapInsertError(err)
	}
	b.Version = rec.Version
	return nil
}

func (r *BookingRepository) Update(ctx context.Context, b *domainbooking.Booking) error {
	rec := newBookingRecord(b)
	rec.Version = b.Version + 1
	res := r.db.WithContext(ctx).
		Model(&bookingRecord{}).
		Where("id = ? AND version = ?", rec.ID, b.Version).
		Select("*").
		Omit("id", "created_at").
		Updates(&rec)
	if res.Error != nil {
		return mapUpdateError(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.ByID(ctx, b.ID); err != nil {
			return err
		}
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version = rec.Version
	return nil
}

func (r *BookingRepository) list(q *gorm.DB) ([]*domainbooking.Booking, error) {
	var recs []bookingRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, r.mapReadError(err)
	}
	out := make([]*domainbooking.Booking, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toAggregate())
	}
	return out, nil
}

// mapReadError classifies failures of reads made inside a write unit. Under
// serializable isolation the overlap read can be the statement that loses the
// race, so it maps like the insert it guards.
func (r *BookingRepository) mapReadError(err error) error {
	if r.unit == nil || r.unit.readOnly {
		return err
	}
	return mapInsertError(err)
}
