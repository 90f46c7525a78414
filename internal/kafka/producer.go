package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"student-manager/common/metrics"
	"student-manager/internal/events"

	"github.com/IBM/sarama"
)

// Producer publishes domain events to a Kafka topic keyed by entity id, so
// every event of one record lands on the same partition.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = "student-manager"
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	return config
}

func NewProducer(brokers []string, topic string, logger *slog.Logger, m *metrics.Metrics) (*Producer, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	logger.Info("kafka producer initialized", "brokers", brokers, "topic", topic)
	return NewProducerWith(producer, topic, logger, m), nil
}

// NewProducerWith wraps an existing SyncProducer.
func NewProducerWith(producer sarama.SyncProducer, topic string, logger *slog.Logger, m *metrics.Metrics) *Producer {
	return &Producer{
		producer: producer,
		topic:    topic,
		logger:   logger,
		metrics:  m,
	}
}

func (p *Producer) Publish(ctx context.Context, event events.Event) error {
	start := time.Now()
	err := p.send(event)
	p.metrics.Messaging.RecordPublish(ctx, "kafka", string(event.Type), time.Since(start), err)
	return err
}

func (p *Producer) send(event events.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.EntityID),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send to kafka: %w", err)
	}

	p.logger.Debug("event sent to kafka", "topic", p.topic, "partition", partition, "offset", offset, "type", event.Type)
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
