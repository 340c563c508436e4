package kafka

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	bookinghandlers "staybook/internal/app/handlers/booking"
	"staybook/internal/app/payments"
)

func TestDecodePaymentEvent(t *testing.T) {
	bare, err := decodePaymentEvent([]byte(`{"event_id":"p-1","booking_id":"bk-1","status":"paid"}`))
	require.NoError(t, err)
	assert.Equal(t, payments.Event{EventID: "p-1", BookingID: "bk-1", Status: "paid"}, bare)

	wrapped, err := decodePaymentEvent([]byte(`{"specversion":"1.0","id":"ce-9","type":"payment.refunded.v1","data":{"booking_id":"bk-2","status":"refunded"}}`))
	require.NoError(t, err)
	assert.Equal(t, "ce-9", wrapped.EventID, "envelope id is used when data has none")
	assert.Equal(t, "bk-2", wrapped.BookingID)

	_, err = decodePaymentEvent([]byte(`{{`))
	assert.Error(t, err)
}

func TestPaymentMessageHandlerDispatches(t *testing.T) {
	var got []bookinghandlers.UpdateBookingStatusCommand
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, bookinghandlers.UpdateBookingStatusCommand{}.Key(),
		commands.HandlerFunc[bookinghandlers.UpdateBookingStatusCommand, *dto.Booking](
			func(_ context.Context, cmd bookinghandlers.UpdateBookingStatusCommand) (*dto.Booking, error) {
				got = append(got, cmd)
				return &dto.Booking{ID: cmd.BookingID}, nil
			}))
	h := &PaymentMessageHandler{Payments: &payments.Handler{Commands: bus}}

	require.NoError(t, h.Handle(context.Background(), &sarama.ConsumerMessage{
		Topic: "payments.events.v1",
		Value: []byte(`{"event_id":"p-1","booking_id":"bk-1","status":"failed"}`),
	}))
	require.NoError(t, h.Handle(context.Background(), &sarama.ConsumerMessage{Topic: "payments.events.v1", Value: []byte("nope")}))

	require.Len(t, got, 1)
	assert.Equal(t, "mark_payment_failed", got[0].Action)
}
