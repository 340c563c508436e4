package kafka

import (
	"context"
	"time"

	"github.com/IBM/sarama"
)

// Producer publishes outbox records. Messages are keyed by aggregate id and
// hash-partitioned, so events of one booking stay ordered.
type Producer struct {
	sync sarama.SyncProducer
}

func NewProducer(brokers []string, id string) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.ClientID = clientID(id)
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Return.Successes = true
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	// idempotent delivery requires a single in-flight request per broker
	cfg.Net.MaxOpenRequests = 1
	sync, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Producer{sync: sync}, nil
}

func (p *Producer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := p.sync.SendMessage(&sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(payload),
		Headers:   recordHeaders(headers),
		Timestamp: time.Now().UTC(),
	})
	return err
}

func (p *Producer) Close() error {
	if p.sync == nil {
		return nil
	}
	return p.sync.Close()
}

func recordHeaders(headers map[string]string) []sarama.RecordHeader {
	if len(headers) == 0 {
		return nil
	}
	hs := make([]sarama.RecordHeader, 0, len(headers))
	for k, v := range headers {
		hs = append(hs, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}
	return hs
}
