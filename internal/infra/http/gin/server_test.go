package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	availabilityapp "staybook/internal/app/handlers/availability"
	bookingapp "staybook/internal/app/handlers/booking"
	"staybook/internal/app/middleware"
	"staybook/internal/app/queries"
	bookingsvc "staybook/internal/app/services/booking"
	domainpricing "staybook/internal/domain/pricing"
	domainproperty "staybook/internal/domain/property"
	"staybook/internal/domain/shared/money"
	"staybook/internal/infra/obs"
	"staybook/internal/infra/storage/memory"
)

func newTestRouter(t *testing.T, checks map[string]obs.Check) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	require.NoError(t, store.SeedProperty(domainproperty.Property{
		ID:                "prop-lisbon",
		HostID:            "host-1",
		MinimumStayNights: 1,
		MaxGuests:         4,
		PricePerNight:     money.Must(10000, "USD"),
		CleaningFee:       money.Must(5000, "USD"),
	}))
	box := memory.NewOutbox(nil)
	factory := memory.Factory{Store: store, Outbox: box}
	service := &bookingsvc.Service{
		UoWFactory: factory,
		Pricing:    domainpricing.Config{ServiceFeeRate: money.MustRate("0.10"), Currency: "USD"},
		Outbox:     box,
		Clock:      func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) },
		Logger:     logger,
	}

	cmdBus := commands.NewInMemoryBus()
	commands.RegisterHandler(cmdBus, bookingapp.CreateBookingCommand{}.Key(), &bookingapp.CreateBookingHandler{Service: service})
	commands.RegisterHandler(cmdBus, bookingapp.UpdateBookingStatusCommand{}.Key(), &bookingapp.UpdateBookingStatusHandler{Service: service})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, bookingapp.ListGuestBookingsQuery{}.Key(), &bookingapp.ListGuestBookingsHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, bookingapp.ListPropertyBookingsQuery{}.Key(), &bookingapp.ListPropertyBookingsHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, availabilityapp.CheckAvailabilityQuery{}.Key(), &availabilityapp.CheckAvailabilityHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, availabilityapp.PropertyCalendarQuery{}.Key(), &availabilityapp.PropertyCalendarHandler{UoWFactory: factory})

	validator := middleware.NewStructValidator()
	commandsWithMW := middleware.ChainCommands(cmdBus,
		middleware.Validation(validator),
		middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil),
		middleware.OutboxFlush(box, logger),
		middleware.Transaction(factory, nil),
	)
	queriesWithMW := middleware.ChainQueries(queryBus, middleware.QueryValidation(validator))

	return NewRouter("test", obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: checks}, Handlers{
		Booking:  BookingHandler{Commands: commandsWithMW, Queries: queriesWithMW, Logger: logger},
		Property: PropertyHandler{Queries: queriesWithMW, Logger: logger},
	})
}

type apiError struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func createBody(checkIn, checkOut string) map[string]any {
	return map[string]any{
		"property_id": "prop-lisbon",
		"guest_id":    "guest-7",
		"check_in":    checkIn,
		"check_out":   checkOut,
		"guests":      2,
	}
}

func TestCreateAndFetchBooking(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPost, "/api/v1/bookings", createBody("2024-06-01", "2024-06-04"), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[dto.Booking](t, rec)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, int64(38000), created.Price.Total.Amount)
	assert.Equal(t, "380.00 USD", created.Price.Total.Formatted)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(t, router, http.MethodGet, "/api/v1/bookings/"+created.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[dto.Booking](t, rec).ID)

	rec = do(t, router, http.MethodGet, "/api/v1/guests/guest-7/bookings", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[dto.BookingCollection](t, rec).Items, 1)
}

func TestCreateBookingErrorKinds(t *testing.T) {
	router := newTestRouter(t, nil)
	require.Equal(t, http.StatusCreated,
		do(t, router, http.MethodPost, "/api/v1/bookings", createBody("2024-06-01", "2024-06-05"), nil).Code)

	missingProperty := createBody("2024-07-01", "2024-07-02")
	delete(missingProperty, "property_id")
	unknownProperty := createBody("2024-07-01", "2024-07-02")
	unknownProperty["property_id"] = "prop-nowhere"
	crowd := createBody("2024-07-01", "2024-07-02")
	crowd["guests"] = 9

	cases := []struct {
		name   string
		body   map[string]any
		status int
		kind   string
	}{
		{"overlap", createBody("2024-06-03", "2024-06-06"), http.StatusConflict, "booking_conflict"},
		{"inverted", createBody("2024-07-05", "2024-07-01"), http.StatusBadRequest, "invalid_date_range"},
		{"zero nights", createBody("2024-07-05", "2024-07-05"), http.StatusBadRequest, "invalid_date_range"},
		{"unparseable date", createBody("05/07/2024", "2024-07-09"), http.StatusBadRequest, "invalid_date_range"},
		{"past", createBody("2024-04-01", "2024-04-03"), http.StatusBadRequest, "invalid_date_range"},
		{"too many guests", crowd, http.StatusBadRequest, "invalid_guest_count"},
		{"missing property", missingProperty, http.StatusBadRequest, "validation"},
		{"unknown property", unknownProperty, http.StatusNotFound, "property_not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/v1/bookings", tc.body, nil)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.kind, decode[apiError](t, rec).Kind)
		})
	}
}

func TestCreateBookingIgnoresClientFeeRate(t *testing.T) {
	router := newTestRouter(t, nil)
	body := createBody("2024-06-01", "2024-06-04")
	body["service_fee_rate"] = "0"

	rec := do(t, router, http.MethodPost, "/api/v1/bookings", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[dto.Booking](t, rec)
	assert.Equal(t, int64(3000), created.Price.ServiceFee.Amount)
	assert.Equal(t, int64(38000), created.Price.Total.Amount)
}

func TestCreateBookingIdempotencyKey(t *testing.T) {
	router := newTestRouter(t, nil)
	headers := map[string]string{"Idempotency-Key": "req-42"}

	first := do(t, router, http.MethodPost, "/api/v1/bookings", createBody("2024-06-01", "2024-06-04"), headers)
	require.Equal(t, http.StatusCreated, first.Code)
	// the replay would conflict if it ran again
	second := do(t, router, http.MethodPost, "/api/v1/bookings", createBody("2024-06-01", "2024-06-04"), headers)
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())
	assert.Equal(t, decode[dto.Booking](t, first).ID, decode[dto.Booking](t, second).ID)

	third := do(t, router, http.MethodPost, "/api/v1/bookings", createBody("2024-06-01", "2024-06-04"), nil)
	assert.Equal(t, http.StatusConflict, third.Code)
}

func TestUpdateStatusEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)
	created := decode[dto.Booking](t, do(t, router, http.MethodPost, "/api/v1/bookings", createBody("2024-06-01", "2024-06-04"), nil))
	path := "/api/v1/bookings/" + created.ID + "/status"

	rec := do(t, router, http.MethodPost, path, map[string]string{"action": "cancel"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, path, map[string]string{"action": "teleport"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decode[apiError](t, rec).Kind)

	rec = do(t, router, http.MethodPost, path, map[string]string{"action": "confirm"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", decode[dto.Booking](t, rec).Status)

	rec = do(t, router, http.MethodPost, path, map[string]string{"action": "reject", "reason": "late"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodPost, path, map[string]string{"action": "cancel", "reason": "change of plans"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cancelled := decode[dto.Booking](t, rec)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "change of plans", cancelled.CancellationReason)

	rec = do(t, router, http.MethodPost, "/api/v1/bookings/missing/status", map[string]string{"action": "confirm"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "booking_not_found", decode[apiError](t, rec).Kind)
}

func TestAvailabilityAndCalendarEndpoints(t *testing.T) {
	router := newTestRouter(t, nil)
	require.Equal(t, http.StatusCreated,
		do(t, router, http.MethodPost, "/api/v1/bookings", createBody("2024-06-01", "2024-06-05"), nil).Code)

	rec := do(t, router, http.MethodGet, "/api/v1/properties/prop-lisbon/availability?check_in=2024-06-05&check_out=2024-06-08", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[dto.Availability](t, rec).Available)

	rec = do(t, router, http.MethodGet, "/api/v1/properties/prop-lisbon/availability?check_in=2024-06-03&check_out=2024-06-06", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	avail := decode[dto.Availability](t, rec)
	assert.False(t, avail.Available)
	assert.Len(t, avail.Conflicts, 1)

	rec = do(t, router, http.MethodGet, "/api/v1/properties/prop-lisbon/calendar?from=2024-06-03&to=2024-06-30", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cal := decode[dto.Calendar](t, rec)
	require.Len(t, cal.Occupied, 1)
	assert.Equal(t, dto.CalendarRange{From: "2024-06-03", To: "2024-06-05"}, cal.Occupied[0])

	rec = do(t, router, http.MethodGet, "/api/v1/properties/prop-lisbon/bookings?status=pending", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[dto.BookingCollection](t, rec).Items, 1)

	rec = do(t, router, http.MethodGet, "/api/v1/properties/prop-lisbon/bookings?status=confirmed", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[dto.BookingCollection](t, rec).Items)

	rec = do(t, router, http.MethodGet, "/api/v1/properties/prop-lisbon/bookings?status=bogus", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", decode[apiError](t, rec).Kind)

	rec = do(t, router, http.MethodGet, "/api/v1/guests/guest-7/bookings?status=ALL", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[dto.BookingCollection](t, rec).Items, 1)

	rec = do(t, router, http.MethodGet, "/api/v1/properties/prop-lisbon/availability?check_in=soon&check_out=2024-06-08", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	healthy := newTestRouter(t, map[string]obs.Check{"storage": func(context.Context) error { return nil }})
	assert.Equal(t, http.StatusOK, do(t, healthy, http.MethodGet, "/livez", nil, nil).Code)
	assert.Equal(t, http.StatusOK, do(t, healthy, http.MethodGet, "/readyz", nil, nil).Code)

	failing := newTestRouter(t, map[string]obs.Check{"storage": func(context.Context) error { return errors.New("no route to host") }})
	rec := do(t, failing, http.MethodGet, "/readyz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "no route to host")
}

func TestClassifyUnknownErrorIsInternal(t *testing.T) {
	k := classify(errors.New("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, k.status)
	assert.Equal(t, "internal", k.kind)
}
