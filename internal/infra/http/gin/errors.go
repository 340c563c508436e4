package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	bookingapp "staybook/internal/app/handlers/booking"
	"staybook/internal/app/middleware"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/pricing"
	domainproperty "staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
)

// errorKind is the stable machine-readable part of an error response.
type errorKind struct {
	status int
	kind   string
}

var errorKinds = []struct {
	target error
	errorKind
}{
	{domainbooking.ErrInvalidDateRange, errorKind{http.StatusBadRequest, "invalid_date_range"}},
	{daterange.ErrInvalidRange, errorKind{http.StatusBadRequest, "invalid_date_range"}},
	{daterange.ErrInvalidDate, errorKind{http.StatusBadRequest, "invalid_date_range"}},
	{domainbooking.ErrInvalidGuestCount, errorKind{http.StatusBadRequest, "invalid_guest_count"}},
	{pricing.ErrInvalidPricingInput, errorKind{http.StatusBadRequest, "invalid_pricing_input"}},
	{middleware.ErrValidation, errorKind{http.StatusBadRequest, "validation"}},
	{bookingapp.ErrMissingIdentifier, errorKind{http.StatusBadRequest, "validation"}},
	{domainbooking.ErrUnknownStatus, errorKind{http.StatusBadRequest, "validation"}},
	{domainbooking.ErrBookingConflict, errorKind{http.StatusConflict, "booking_conflict"}},
	{domainbooking.ErrInvalidTransition, errorKind{http.StatusConflict, "invalid_transition"}},
	{domainbooking.ErrConcurrentUpdate, errorKind{http.StatusConflict, "concurrent_update"}},
	{domainbooking.ErrBookingNotFound, errorKind{http.StatusNotFound, "booking_not_found"}},
	{domainproperty.ErrPropertyNotFound, errorKind{http.StatusNotFound, "property_not_found"}},
}

func classify(err error) errorKind {
	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.errorKind
		}
	}
	return errorKind{http.StatusInternalServerError, "internal"}
}

func respondError(c *gin.Context, logger *slog.Logger, err error) {
	k := classify(err)
	msg := err.Error()
	if k.status >= http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", "path", c.FullPath(), "error", err, "request_id", c.GetString("request_id"))
		}
		msg = "internal error"
	}
	c.JSON(k.status, gin.H{"error": msg, "kind": k.kind})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "validation"})
}
