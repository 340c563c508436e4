package availability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
)

const (
	checkAvailabilityKey = "availability.check"
	propertyCalendarKey  = "availability.calendar"
	maxCalendarWindow    = 366 * 24 * time.Hour
)

type CheckAvailabilityQuery struct {
	PropertyID string
	CheckIn    time.Time
	CheckOut   time.Time
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
	Checker    domainavailability.Checker
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.Availability, error) {
	dr, err := daterange.New(q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.Availability{}, fmt.Errorf("%w: %w", domainbooking.ErrInvalidDateRange, err)
	}
	existing, err := loadReservations(ctx, h.UoWFactory, q.PropertyID)
	if err != nil {
		return dto.Availability{}, err
	}
	propertyID := domainproperty.ID(strings.TrimSpace(q.PropertyID))
	conflicts := h.Checker.Conflicts(propertyID, dr, existing)
	out := dto.Availability{
		PropertyID: string(propertyID),
		CheckIn:    dr.CheckIn.Format(daterange.DateLayout),
		CheckOut:   dr.CheckOut.Format(daterange.DateLayout),
		Available:  len(conflicts) == 0,
	}
	for _, c := range conflicts {
		out.Conflicts = append(out.Conflicts, c.Range.String())
	}
	return out, nil
}

// PropertyCalendarQuery lists the occupied ranges of a property in [From, To).
type PropertyCalendarQuery struct {
	PropertyID string
	From       time.Time
	To         time.Time
}

func (q PropertyCalendarQuery) Key() string { return propertyCalendarKey }

type PropertyCalendarHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *PropertyCalendarHandler) Handle(ctx context.Context, q PropertyCalendarQuery) (dto.Calendar, error) {
	window, err := daterange.New(q.From, q.To)
	if err != nil {
		return dto.Calendar{}, fmt.Errorf("%w: %w", domainbooking.ErrInvalidDateRange, err)
	}
	if window.CheckOut.Sub(window.CheckIn) > maxCalendarWindow {
		return dto.Calendar{}, fmt.Errorf("%w: calendar window longer than a year", domainbooking.ErrInvalidDateRange)
	}
	existing, err := loadReservations(ctx, h.UoWFactory, q.PropertyID)
	if err != nil {
		return dto.Calendar{}, err
	}
	propertyID := domainproperty.ID(strings.TrimSpace(q.PropertyID))
	occupied := domainavailability.Occupied(propertyID, existing, window)
	return dto.MapCalendar(string(propertyID), window, occupied), nil
}

func loadReservations(ctx context.Context, factory uow.UoWFactory, propertyID string) ([]domainavailability.Reservation, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, factory)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	id := domainproperty.ID(strings.TrimSpace(propertyID))
	if _, err := unit.Properties().ByID(execCtx, id); err != nil {
		return nil, err
	}
	list, err := unit.Bookings().ListByProperty(execCtx, id)
	if err != nil {
		return nil, err
	}
	return domainavailability.FromBookings(list), nil
}

var _ queries.Handler[CheckAvailabilityQuery, dto.Availability] = (*CheckAvailabilityHandler)(nil)
var _ queries.Handler[PropertyCalendarQuery, dto.Calendar] = (*PropertyCalendarHandler)(nil)
