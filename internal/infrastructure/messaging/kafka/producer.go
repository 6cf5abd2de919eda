package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/erp/catalogsync/internal/infrastructure/config"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// HeaderEventType carries the envelope tag on produced messages
const HeaderEventType = "event_type"

// NewWriter creates a writer for the configured brokers. Messages name their
// own topic, so one writer serves both the outbound and dead-letter topics.
// Keys are hashed so every message of one entity lands on the same partition.
func NewWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// Producer publishes envelopes on a single topic
type Producer struct {
	writer Writer
	topic  string
	logger *zap.Logger
}

// NewProducer creates a producer writing to topic
func NewProducer(writer Writer, topic string, logger *zap.Logger) *Producer {
	return &Producer{
		writer: writer,
		topic:  topic,
		logger: logger,
	}
}

// Publish writes the envelopes in one batch, keyed by key
func (p *Producer) Publish(ctx context.Context, key string, envelopes ...shared.Envelope) error {
	if len(envelopes) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(envelopes))
	for _, env := range envelopes {
		value, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("failed to marshal %s envelope: %w", env.Event, err)
		}
		msg := kafka.Message{
			Topic: p.topic,
			Key:   []byte(key),
			Value: value,
			Headers: []kafka.Header{
				{Key: HeaderEventType, Value: []byte(env.Event)},
			},
		}
		injectTrace(ctx, &msg)
		msgs = append(msgs, msg)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write to %s: %w", p.topic, err)
	}
	p.logger.Debug("published envelopes",
		zap.String("topic", p.topic),
		zap.String("key", key),
		zap.Int("count", len(msgs)),
	)
	return nil
}

// Close closes the underlying writer
func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}

// Ensure Producer implements EventPublisher
var _ shared.EventPublisher = (*Producer)(nil)
