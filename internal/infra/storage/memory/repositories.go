package memory

import (
	"context"
	"fmt"
	"time"

	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
)

type propertyRepository struct {
	unit *Unit
}

func (r propertyRepository) ByID(ctx context.Context, id domainproperty.ID) (*domainproperty.Property, error) {
	if p, ok := r.unit.properties[id]; ok {
		cp := *p
		return &cp, nil
	}
	p, ok := r.unit.store.property(id)
	if !ok {
		return nil, domainproperty.ErrPropertyNotFound
	}
	return p, nil
}

func (r propertyRepository) Save(ctx context.Context, p *domainproperty.Property) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	cp := *p
	r.unit.properties[p.ID] = &cp
	return nil
}

type bookingRepository struct {
	unit *Unit
}

func (r bookingRepository) ByID(ctx context.Context, id domainbooking.ID) (*domainbooking.Booking, error) {
	if b, ok := r.unit.bookings[id]; ok {
		return b.Clone(), nil
	}
	b, ok := r.unit.store.booking(id)
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return b, nil
}

func (r bookingRepository) ListByProperty(ctx context.Context, propertyID domainproperty.ID) ([]*domainbooking.Booking, error) {
	return r.unit.view().filter(func(b *domainbooking.Booking) bool {
		return b.PropertyID == propertyID
	}), nil
}

func (r bookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.unit.view().filter(func(b *domainbooking.Booking) bool {
		return b.GuestID == guestID
	}), nil
}

func (r bookingRepository) ListDueForCompletion(ctx context.Context, checkOutBefore time.Time, limit int) ([]*domainbooking.Booking, error) {
	due := r.unit.view().filter(dueForCompletion(checkOutBefore))
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r bookingRepository) Insert(ctx context.Context, b *domainbooking.Booking) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	view := r.unit.view()
	if _, exists := view[b.ID]; exists {
		return fmt.Errorf("%w: booking %s already exists", domainbooking.ErrConcurrentUpdate, b.ID)
	}
	if b.Status.HoldsDates() {
		if other := view.overlapping(b); other != nil {
			return conflictError(b, other)
		}
	}
	b.Version = 1
	r.unit.bookings[b.ID] = b.Clone()
	return nil
}

func (r bookingRepository) Update(ctx context.Context, b *domainbooking.Booking) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	current, ok := r.unit.view()[b.ID]
	if !ok {
		return domainbooking.ErrBookingNotFound
	}
	if current.Version != b.Version {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version++
	r.unit.bookings[b.ID] = b.Clone()
	return nil
}
