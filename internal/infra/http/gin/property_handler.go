package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/dto"
	availabilityapp "staybook/internal/app/handlers/availability"
	bookingapp "staybook/internal/app/handlers/booking"
	"staybook/internal/app/queries"
)

type PropertyHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h PropertyHandler) Bookings(c *gin.Context) {
	query := bookingapp.ListPropertyBookingsQuery{
		PropertyID: strings.TrimSpace(c.Param("id")),
		Status:     c.Query("status"),
	}
	result, err := queries.Ask[bookingapp.ListPropertyBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) Availability(c *gin.Context) {
	checkIn, err := parseDate(c.Query("check_in"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	checkOut, err := parseDate(c.Query("check_out"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	query := availabilityapp.CheckAvailabilityQuery{
		PropertyID: strings.TrimSpace(c.Param("id")),
		CheckIn:    checkIn,
		CheckOut:   checkOut,
	}
	result, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) Calendar(c *gin.Context) {
	from, err := parseDate(c.Query("from"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	query := availabilityapp.PropertyCalendarQuery{PropertyID: strings.TrimSpace(c.Param("id")), From: from, To: to}
	result, err := queries.Ask[availabilityapp.PropertyCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ PropertyHTTP = PropertyHandler{}
