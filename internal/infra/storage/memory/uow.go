package memory

import (
	"context"
	"errors"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
)

// Factory wires the in-memory store into a unit-of-work boundary.
type Factory struct {
	Store  *Store
	Outbox *Outbox
}

// ErrFactoryMisconfigured indicates a missing store.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a unit. Write units hold the store's writer slot until Commit
// or Rollback, which makes check-then-insert atomic across requests.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	u := &Unit{
		store:      f.Store,
		outbox:     f.Outbox,
		readOnly:   opts.ReadOnly,
		properties: make(map[domainproperty.ID]*domainproperty.Property),
		bookings:   make(map[domainbooking.ID]*domainbooking.Booking),
	}
	if !opts.ReadOnly {
		if err := f.Store.acquire(ctx); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// Unit stages writes until Commit.
type Unit struct {
	store    *Store
	outbox   *Outbox
	readOnly bool
	done     bool

	properties map[domainproperty.ID]*domainproperty.Property
	bookings   map[domainbooking.ID]*domainbooking.Booking
	records    []appoutbox.EventRecord
}

func (u *Unit) Properties() domainproperty.Repository {
	return propertyRepository{unit: u}
}

func (u *Unit) Bookings() domainbooking.Repository {
	return bookingRepository{unit: u}
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return ErrUnitClosed
	}
	u.done = true
	if u.readOnly {
		return nil
	}
	defer u.store.release()
	u.store.apply(u.properties, u.bookings)
	if u.outbox != nil {
		u.outbox.enqueue(u.records...)
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	if !u.readOnly {
		u.store.release()
	}
	return nil
}

func (u *Unit) view() bookingView {
	v := bookingView(u.store.snapshotBookings())
	for id, b := range u.bookings {
		v[id] = b
	}
	return v
}

func (u *Unit) writable() error {
	if u.done {
		return ErrUnitClosed
	}
	if u.readOnly {
		return errors.New("memory: write in read-only unit")
	}
	return nil
}

func (u *Unit) stageRecord(rec appoutbox.EventRecord) bool {
	if u.done || u.readOnly {
		return false
	}
	u.records = append(u.records, rec)
	return true
}
