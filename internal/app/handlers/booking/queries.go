package booking

import (
	"context"
	"errors"
	"sort"
	"strings"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
)

const (
	getBookingKey           = "booking.get"
	listPropertyBookingsKey = "booking.list_by_property"
	listGuestBookingsKey    = "booking.list_by_guest"
	allStatusesFilterValue  = "all"
)

var ErrMissingIdentifier = errors.New("booking: identifier is required")

type GetBookingQuery struct {
	BookingID string
}

func (q GetBookingQuery) Key() string { return getBookingKey }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	id := strings.TrimSpace(q.BookingID)
	if id == "" {
		return dto.Booking{}, ErrMissingIdentifier
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Booking{}, err
	}
	defer cleanup()
	b, err := unit.Bookings().ByID(execCtx, domainbooking.ID(id))
	if err != nil {
		return dto.Booking{}, err
	}
	return dto.MapBooking(b), nil
}

type ListPropertyBookingsQuery struct {
	PropertyID string
	Status     string
}

func (q ListPropertyBookingsQuery) Key() string { return listPropertyBookingsKey }

type ListPropertyBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListPropertyBookingsHandler) Handle(ctx context.Context, q ListPropertyBookingsQuery) (dto.BookingCollection, error) {
	propertyID := strings.TrimSpace(q.PropertyID)
	if propertyID == "" {
		return dto.BookingCollection{}, ErrMissingIdentifier
	}
	keep, err := statusFilter(q.Status)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	defer cleanup()
	if _, err := unit.Properties().ByID(execCtx, domainproperty.ID(propertyID)); err != nil {
		return dto.BookingCollection{}, err
	}
	list, err := unit.Bookings().ListByProperty(execCtx, domainproperty.ID(propertyID))
	if err != nil {
		return dto.BookingCollection{}, err
	}
	return dto.MapBookings(filterAndSort(list, keep)), nil
}

type ListGuestBookingsQuery struct {
	GuestID string
	Status  string
}

func (q ListGuestBookingsQuery) Key() string { return listGuestBookingsKey }

type ListGuestBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListGuestBookingsHandler) Handle(ctx context.Context, q ListGuestBookingsQuery) (dto.BookingCollection, error) {
	guestID := strings.TrimSpace(q.GuestID)
	if guestID == "" {
		return dto.BookingCollection{}, ErrMissingIdentifier
	}
	keep, err := statusFilter(q.Status)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	defer cleanup()
	list, err := unit.Bookings().ListByGuest(execCtx, guestID)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	return dto.MapBookings(filterAndSort(list, keep)), nil
}

// statusFilter turns the ?status= value into a predicate. Empty and "all"
// keep everything; anything else must name a booking status.
func statusFilter(raw string) (func(domainbooking.Status) bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, allStatusesFilterValue) {
		return func(domainbooking.Status) bool { return true }, nil
	}
	want, err := domainbooking.ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	return func(s domainbooking.Status) bool { return s == want }, nil
}

// filterAndSort keeps matching bookings ordered by check-in.
func filterAndSort(list []*domainbooking.Booking, keep func(domainbooking.Status) bool) []*domainbooking.Booking {
	out := make([]*domainbooking.Booking, 0, len(list))
	for _, b := range list {
		if keep(b.Status) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Range.CheckIn.Before(out[j].Range.CheckIn)
	})
	return out
}

var _ queries.Handler[GetBookingQuery, dto.Booking] = (*GetBookingHandler)(nil)
var _ queries.Handler[ListPropertyBookingsQuery, dto.BookingCollection] = (*ListPropertyBookingsHandler)(nil)
var _ queries.Handler[ListGuestBookingsQuery, dto.BookingCollection] = (*ListGuestBookingsHandler)(nil)
