package inproc

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"

	"staybook/internal/app/policies"
	infraoutbox "staybook/internal/infra/outbox"
)

// NotificationSink forwards booking events from the bus to the notifier.
type NotificationSink struct {
	Bus      *Bus
	Topic    string
	Notifier policies.Notifier
	Logger   *slog.Logger

	messages <-chan *message.Message
}

// Subscribe attaches the sink to its topic. Call it before anything
// publishes; Run subscribes itself when this was skipped.
func (s *NotificationSink) Subscribe(ctx context.Context) error {
	messages, err := s.Bus.Subscribe(ctx, s.Topic)
	if err != nil {
		return err
	}
	s.messages = messages
	return nil
}

func (s *NotificationSink) Run(ctx context.Context) error {
	if s.messages == nil {
		if err := s.Subscribe(ctx); err != nil {
			return err
		}
	}
	messages := s.messages
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			rec, err := infraoutbox.ParseCloudEvent(msg.Payload)
			if err != nil {
				s.logger().Warn("notification event undecodable", "message_uuid", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			if err := policies.NotifyBookingEvent(ctx, s.Notifier, rec); err != nil {
				// delivery is best effort
				s.logger().Warn("notification failed", "event_id", rec.ID, "name", rec.Name, "error", err)
			}
			msg.Ack()
		}
	}
}

func (s *NotificationSink) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
