// Package kafka carries catalog events between the sync service and the
// Kafka cluster: a partition-sharded consumer that applies inbound envelopes
// and a producer for the outbound synchronisation topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/erp/catalogsync/internal/infrastructure/config"
	"github.com/erp/catalogsync/internal/infrastructure/telemetry"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const meterName = "github.com/erp/catalogsync/internal/infrastructure/messaging/kafka"

// Exported consumer counter names. All carry messaging.destination; retried
// and dead-lettered also carry event.type.
const (
	MetricConsumerFetched      = "catalogsync.consumer.fetched"
	MetricConsumerCommitted    = "catalogsync.consumer.committed"
	MetricConsumerRetried      = "catalogsync.consumer.retried"
	MetricConsumerDeadLettered = "catalogsync.consumer.dead_lettered"
)

var consumerCounters = []telemetry.CounterSpec{
	{Name: MetricConsumerFetched, Description: "Messages fetched from Kafka"},
	{Name: MetricConsumerCommitted, Description: "Offsets committed"},
	{Name: MetricConsumerRetried, Description: "Retry attempts after a transient failure"},
	{Name: MetricConsumerDeadLettered, Description: "Messages forwarded to the dead-letter topic"},
}

// Headers added to dead-lettered messages
const (
	HeaderError           = "error"
	HeaderSourceTopic     = "source_topic"
	HeaderSourcePartition = "source_partition"
	HeaderSourceOffset    = "source_offset"
)

// Reader is the part of *kafka.Reader the consumer needs
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Writer is the part of *kafka.Writer the producer and the dead-letter path need
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewReader creates a consumer-group reader over the configured topics.
// Offsets are committed explicitly, one message at a time.
func NewReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		StartOffset: kafka.FirstOffset,
	})
}

// ConsumerMetrics is the in-process snapshot of delivery outcomes; the same
// outcomes are exported as OTel counters.
type ConsumerMetrics struct {
	Fetched      atomic.Int64
	Committed    atomic.Int64
	Retried      atomic.Int64
	DeadLettered atomic.Int64
}

// ConsumerStats is a snapshot of consumer metrics
type ConsumerStats struct {
	Fetched      int64 `json:"fetched"`
	Committed    int64 `json:"committed"`
	Retried      int64 `json:"retried"`
	DeadLettered int64 `json:"dead_lettered"`
}

// Stats returns a snapshot of the current metrics
func (m *ConsumerMetrics) Stats() ConsumerStats {
	return ConsumerStats{
		Fetched:      m.Fetched.Load(),
		Committed:    m.Committed.Load(),
		Retried:      m.Retried.Load(),
		DeadLettered: m.DeadLettered.Load(),
	}
}

// ConsumerOption is a functional option for Consumer
type ConsumerOption func(*Consumer)

// WithConsumerMeter records consumer counters on meter instead of the global provider
func WithConsumerMeter(meter metric.Meter) ConsumerOption {
	return func(c *Consumer) {
		c.meter = meter
	}
}

// WithDeadLetter forwards fatally failed messages to topic through writer
func WithDeadLetter(writer Writer, topic string) ConsumerOption {
	return func(c *Consumer) {
		c.dlq = writer
		c.dlqTopic = topic
	}
}

// Consumer fetches messages, hands them to a MessageHandler and commits
// their offsets. Messages are sharded to workers by partition, so each
// partition is processed and committed strictly in order.
//
// Malformed input is committed and forgotten. Fatal failures are forwarded
// to the dead-letter topic, then committed. Any other failure is retried
// with exponential backoff and the offset stays uncommitted meanwhile.
type Consumer struct {
	reader   Reader
	handler  shared.MessageHandler
	dlq      Writer
	dlqTopic string
	cfg      config.ConsumerConfig
	logger   *zap.Logger
	meter    metric.Meter
	counters telemetry.CounterSet
	metrics  ConsumerMetrics
}

// NewConsumer creates a consumer
func NewConsumer(reader Reader, handler shared.MessageHandler, cfg config.ConsumerConfig, logger *zap.Logger, opts ...ConsumerOption) *Consumer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	c := &Consumer{
		reader:  reader,
		handler: handler,
		cfg:     cfg,
		logger:  logger,
		meter:   otel.Meter(meterName),
	}
	for _, opt := range opts {
		opt(c)
	}
	counters, err := telemetry.NewCounterSet(c.meter, consumerCounters...)
	if err != nil {
		logger.Warn("consumer counters unavailable, not exporting", zap.Error(err))
	}
	c.counters = counters
	return c
}

// Run consumes until ctx is cancelled or the reader is closed.
// Queued messages are abandoned uncommitted and redelivered after a restart.
func (c *Consumer) Run(ctx context.Context) error {
	shards := make([]chan kafka.Message, c.cfg.Workers)
	var wg sync.WaitGroup
	for i := range shards {
		shards[i] = make(chan kafka.Message, c.cfg.QueueSize)
		wg.Add(1)
		go func(in <-chan kafka.Message) {
			defer wg.Done()
			for msg := range in {
				c.process(ctx, msg)
			}
		}(shards[i])
	}

	c.logger.Info("kafka consumer started", zap.Int("workers", c.cfg.Workers))
	err := c.fetchLoop(ctx, shards)

	for _, ch := range shards {
		close(ch)
	}
	wg.Wait()
	c.logger.Info("kafka consumer stopped")
	return err
}

func (c *Consumer) fetchLoop(ctx context.Context, shards []chan kafka.Message) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			c.logger.Error("failed to fetch message", zap.Error(err))
			if !sleep(ctx, c.cfg.RetryInitial) {
				return nil
			}
			continue
		}
		c.metrics.Fetched.Add(1)
		c.counters.Inc(ctx, MetricConsumerFetched, destination(msg))

		shard := shards[msg.Partition%len(shards)]
		select {
		case shard <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

// process applies one message and decides what happens to its offset
func (c *Consumer) process(ctx context.Context, km kafka.Message) {
	if ctx.Err() != nil {
		return
	}
	msg := toMessage(km)
	ctx = extractTrace(ctx, km)
	log := c.logger.With(
		zap.String("topic", km.Topic),
		zap.Int("partition", km.Partition),
		zap.Int64("offset", km.Offset),
	)

	op := func() error {
		err := c.handler.HandleMessage(ctx, msg)
		if err != nil && shared.KindOf(err) != shared.FailureTransient {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.metrics.Retried.Add(1)
		c.counters.Inc(ctx, MetricConsumerRetried, destination(km), eventType(km))
		log.Warn("message failed, retrying", zap.Duration("backoff", wait), zap.Error(err))
	}

	err := backoff.RetryNotify(op, backoff.WithContext(c.retryPolicy(), ctx), notify)
	if err != nil {
		if ctx.Err() != nil {
			log.Info("shutting down, leaving message uncommitted")
			return
		}
		if shared.IsMalformed(err) {
			log.Warn("dropping malformed message", zap.Error(err))
		} else if !c.deadLetter(ctx, km, err, log) {
			return
		}
	}

	if err := c.reader.CommitMessages(ctx, km); err != nil {
		log.Error("failed to commit offset", zap.Error(err))
		return
	}
	c.metrics.Committed.Add(1)
	c.counters.Inc(ctx, MetricConsumerCommitted, destination(km))
}

// deadLetter forwards km to the dead-letter topic. It returns false when
// the message must stay uncommitted.
func (c *Consumer) deadLetter(ctx context.Context, km kafka.Message, cause error, log *zap.Logger) bool {
	if c.dlq == nil || c.dlqTopic == "" {
		log.Error("message failed fatally and no dead-letter topic is configured, skipping",
			zap.String("failure", shared.KindOf(cause).String()),
			zap.Error(cause),
		)
		return true
	}

	out := kafka.Message{
		Topic: c.dlqTopic,
		Key:   km.Key,
		Value: km.Value,
		Headers: append(append([]kafka.Header(nil), km.Headers...),
			kafka.Header{Key: HeaderError, Value: []byte(cause.Error())},
			kafka.Header{Key: HeaderSourceTopic, Value: []byte(km.Topic)},
			kafka.Header{Key: HeaderSourcePartition, Value: []byte(fmt.Sprint(km.Partition))},
			kafka.Header{Key: HeaderSourceOffset, Value: []byte(fmt.Sprint(km.Offset))},
		),
	}
	write := func() error { return c.dlq.WriteMessages(ctx, out) }
	if err := backoff.Retry(write, backoff.WithContext(c.retryPolicy(), ctx)); err != nil {
		log.Error("failed to forward message to dead-letter topic", zap.Error(err))
		return false
	}

	c.metrics.DeadLettered.Add(1)
	c.counters.Inc(ctx, MetricConsumerDeadLettered, destination(km), eventType(km))
	log.Error("message forwarded to dead-letter topic",
		zap.String("dead_letter_topic", c.dlqTopic),
		zap.String("failure", shared.KindOf(cause).String()),
		zap.Error(cause),
	)
	return true
}

func (c *Consumer) retryPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if c.cfg.RetryInitial > 0 {
		b.InitialInterval = c.cfg.RetryInitial
	}
	if c.cfg.RetryMax > 0 {
		b.MaxInterval = c.cfg.RetryMax
	}
	b.MaxElapsedTime = c.cfg.RetryMaxElapsed
	b.Reset()
	return b
}

// Stats returns a snapshot of the consumer counters
func (c *Consumer) Stats() ConsumerStats {
	return c.metrics.Stats()
}

// Close closes the reader and the dead-letter writer
func (c *Consumer) Close() error {
	var errs []error
	if err := c.reader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close kafka reader: %w", err))
	}
	if c.dlq != nil {
		if err := c.dlq.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close dead-letter writer: %w", err))
		}
	}
	return errors.Join(errs...)
}

func toMessage(km kafka.Message) shared.Message {
	return shared.Message{
		Key:        fmt.Sprintf("%s/%d/%d", km.Topic, km.Partition, km.Offset),
		Topic:      km.Topic,
		Partition:  km.Partition,
		Offset:     km.Offset,
		Value:      km.Value,
		ReceivedAt: km.Time,
	}
}

func destination(km kafka.Message) attribute.KeyValue {
	return attribute.String("messaging.destination", km.Topic)
}

// eventType reads the event tag from the message header, falling back to
// the envelope itself. Undecodable messages report an empty tag.
func eventType(km kafka.Message) attribute.KeyValue {
	for _, h := range km.Headers {
		if h.Key == HeaderEventType {
			return attribute.String("event.type", string(h.Value))
		}
	}
	env, err := shared.DecodeEnvelope(km.Value)
	if err != nil {
		return attribute.String("event.type", "")
	}
	return attribute.String("event.type", env.Event)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
