package ginserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	bookingapp "staybook/internal/app/handlers/booking"
	"staybook/internal/app/queries"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
)

var errReasonRequired = errors.New("reason is required to cancel a booking")

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createBookingRequest struct {
	BookingID       string `json:"booking_id"`
	PropertyID      string `json:"property_id"`
	GuestID         string `json:"guest_id"`
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	Guests          int    `json:"guests"`
	SpecialRequests string `json:"special_requests"`
}

type updateStatusRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

func (h BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	checkIn, err := parseDate(req.CheckIn)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	checkOut, err := parseDate(req.CheckOut)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		BookingID:       strings.TrimSpace(req.BookingID),
		PropertyID:      strings.TrimSpace(req.PropertyID),
		GuestID:         strings.TrimSpace(req.GuestID),
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          req.Guests,
		SpecialRequests: req.SpecialRequests,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	query := bookingapp.GetBookingQuery{BookingID: strings.TrimSpace(c.Param("id"))}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	action := strings.ToLower(strings.TrimSpace(req.Action))
	if action == string(domainbooking.ActionCancel) && strings.TrimSpace(req.Reason) == "" {
		respondBadRequest(c, errReasonRequired)
		return
	}
	cmd := bookingapp.UpdateBookingStatusCommand{
		BookingID: strings.TrimSpace(c.Param("id")),
		Action:    action,
		Reason:    req.Reason,
	}
	result, err := commands.Dispatch[bookingapp.UpdateBookingStatusCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ListByGuest(c *gin.Context) {
	query := bookingapp.ListGuestBookingsQuery{
		GuestID: strings.TrimSpace(c.Param("id")),
		Status:  c.Query("status"),
	}
	result, err := queries.Ask[bookingapp.ListGuestBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(daterange.DateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", daterange.ErrInvalidDate, raw)
	}
	return t, nil
}

var _ BookingHTTP = BookingHandler{}
