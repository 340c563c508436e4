package policies

import (
	"context"
	"encoding/json"
	"fmt"

	"staybook/internal/app/outbox"
)

// notificationTemplates maps booking lifecycle events to guest-facing templates.
// Payment retries are internal and are not announced.
var notificationTemplates = map[string]string{
	"booking.requested":        "booking_requested",
	"booking.confirmed":        "booking_confirmed",
	"booking.rejected":         "booking_rejected",
	"booking.cancelled":        "booking_cancelled",
	"booking.completed":        "booking_completed",
	"booking.payment_received": "payment_received",
	"booking.payment_refunded": "payment_refunded",
	"booking.payment_failed":   "payment_failed",
}

func TemplateFor(eventName string) (string, bool) {
	tpl, ok := notificationTemplates[eventName]
	return tpl, ok
}

type recipientPayload struct {
	GuestID   string `json:"guest_id"`
	BookingID string `json:"booking_id"`
}

// NotifyBookingEvent forwards a published booking event to the notifier.
// Events without a template are skipped.
func NotifyBookingEvent(ctx context.Context, n Notifier, rec outbox.EventRecord) error {
	if n == nil {
		return nil
	}
	tpl, ok := TemplateFor(rec.Name)
	if !ok {
		return nil
	}
	var data map[string]any
	if err := json.Unmarshal(rec.Payload, &data); err != nil {
		return fmt.Errorf("policies: decode %s payload: %w", rec.Name, err)
	}
	var who recipientPayload
	_ = json.Unmarshal(rec.Payload, &who)
	to := who.GuestID
	if to == "" {
		to = "booking:" + rec.Aggregate
	}
	return n.Send(ctx, to, tpl, data)
}
