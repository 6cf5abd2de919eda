package main

import (
	"context"

	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/erp/catalogsync/internal/infrastructure/cache"
	"github.com/erp/catalogsync/internal/infrastructure/config"
	"github.com/erp/catalogsync/internal/infrastructure/event"
	"github.com/erp/catalogsync/internal/infrastructure/messaging/kafka"
	"go.uber.org/zap"
)

// transport holds the inbound and outbound side of the selected driver
type transport struct {
	cfg      *config.Config
	log      *zap.Logger
	outbound shared.EventPublisher
	bus      *event.InMemoryEventBus
	producer *kafka.Producer
	consumer *kafka.Consumer
}

func newTransport(ctx context.Context, cfg *config.Config, log *zap.Logger) (*transport, error) {
	tr := &transport{cfg: cfg, log: log}

	if cfg.Messaging.Driver == "memory" {
		tr.bus = event.NewInMemoryEventBus(log.Named("bus"))
		if err := tr.bus.Start(ctx); err != nil {
			return nil, err
		}
		tr.outbound = tr.bus
		return tr, nil
	}

	tr.producer = kafka.NewProducer(kafka.NewWriter(cfg.Kafka), cfg.Kafka.OutboundTopic, log.Named("producer"))
	tr.outbound = tr.producer
	return tr, nil
}

// newConsumer builds the Kafka consumer feeding handler. It dead-letters
// through its own writer so closing the consumer leaves the producer open.
func (t *transport) newConsumer(handler shared.MessageHandler) *kafka.Consumer {
	var opts []kafka.ConsumerOption
	if t.cfg.Kafka.DeadLetterTopic != "" {
		opts = append(opts, kafka.WithDeadLetter(kafka.NewWriter(t.cfg.Kafka), t.cfg.Kafka.DeadLetterTopic))
	}
	t.consumer = kafka.NewConsumer(kafka.NewReader(t.cfg.Kafka), handler, t.cfg.Consumer, t.log.Named("consumer"), opts...)
	return t.consumer
}

func (t *transport) close() {
	if t.bus != nil {
		_ = t.bus.Stop(context.Background())
	}
	if t.consumer != nil {
		if err := t.consumer.Close(); err != nil {
			t.log.Error("Error closing consumer", zap.Error(err))
		}
	}
	if t.producer != nil {
		if err := t.producer.Close(); err != nil {
			t.log.Error("Error closing producer", zap.Error(err))
		}
	}
}

func newIdempotencyStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (shared.IdempotencyStore, error) {
	factory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log.Named("idempotency")),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	return factory.CreateStore(ctx, cfg.Idempotency.Store)
}
