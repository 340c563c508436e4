package inproc

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const partitionKeyHeader = "partition_key"

// Bus is an in-process pub/sub used when Kafka is not configured. It
// satisfies the outbox Producer contract. Nothing is retained: a message
// published while a topic has no subscriber is dropped.
type Bus struct {
	pubsub *gochannel.GoChannel
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
		}, NewLoggerAdapter(logger)),
	}
}

func (b *Bus) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	for k, v := range headers {
		msg.Metadata.Set(k, v)
	}
	msg.Metadata.Set(partitionKeyHeader, key)
	return b.pubsub.Publish(topic, msg)
}

func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}
