package kafka

import (
	"context"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topics   []string
	ClientID string
	Logger   *slog.Logger
}

// Consumer feeds one consumer group's messages to a handler. A message is
// marked only after the handler accepts it.
type Consumer struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler MessageHandler
	logger  *slog.Logger
}

func NewConsumer(cfg ConsumerConfig, handler MessageHandler) (*Consumer, error) {
	if len(cfg.Topics) == 0 {
		return nil, errors.New("kafka: consumer needs at least one topic")
	}
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_5_0_0
	sc.ClientID = clientID(cfg.ClientID)
	sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategySticky()}
	g, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{group: g, topics: cfg.Topics, handler: handler, logger: logger}, nil
}

// Run consumes until ctx is cancelled, rejoining the group after every
// rebalance.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if err := c.group.Consume(ctx, c.topics, groupHandler{handler: c.handler, logger: c.logger}); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type groupHandler struct {
	handler MessageHandler
	logger  *slog.Logger
}

func (h groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-sess.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.handler.Handle(sess.Context(), msg); err != nil {
				// left unmarked; redelivered after a rebalance or restart
				h.logger.Warn("kafka message not handled",
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"error", err,
				)
				continue
			}
			sess.MarkMessage(msg, "")
		}
	}
}

func clientID(id string) string {
	if id == "" {
		return "staybook"
	}
	return id
}
