package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/IBM/sarama"

	"staybook/internal/app/payments"
)

// PaymentMessageHandler decodes payment topic messages. Both a bare JSON
// event and a CloudEvents envelope carrying it under "data" are accepted.
type PaymentMessageHandler struct {
	Payments *payments.Handler
	Logger   *slog.Logger
}

type cloudEnvelope struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

func (h *PaymentMessageHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	ev, err := decodePaymentEvent(msg.Value)
	if err != nil {
		h.logger().Warn("payment message undecodable", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return nil
	}
	return h.Payments.Handle(ctx, ev)
}

func decodePaymentEvent(raw []byte) (payments.Event, error) {
	var env cloudEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return payments.Event{}, err
	}
	body := raw
	if len(env.Data) > 0 {
		body = env.Data
	}
	var ev payments.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return payments.Event{}, err
	}
	if ev.EventID == "" {
		ev.EventID = env.ID
	}
	return ev, nil
}

func (h *PaymentMessageHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ MessageHandler = (*PaymentMessageHandler)(nil)
