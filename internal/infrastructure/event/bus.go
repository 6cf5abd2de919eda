package event

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/erp/catalogsync/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrBusStopped is returned when publishing on a stopped bus
var ErrBusStopped = errors.New("event bus is not running")

// InMemoryEventBus delivers envelopes to local subscribers synchronously.
// It backs the single-process "memory" messaging driver and tests.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	running  atomic.Bool
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Publish delivers every envelope to its subscribers, in order.
// A failing subscriber does not stop delivery to the others; all failures
// are returned joined.
func (b *InMemoryEventBus) Publish(ctx context.Context, key string, envelopes ...shared.Envelope) error {
	if !b.running.Load() {
		return ErrBusStopped
	}

	var errs []error
	for _, env := range envelopes {
		for _, handler := range b.registry.GetHandlers(env.Event) {
			if err := b.dispatchToHandler(ctx, handler, env); err != nil {
				b.logger.Error("handler failed to process event",
					zap.String("event_type", env.Event),
					zap.String("key", key),
					zap.Error(err),
				)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a handler for specific event types
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// Start starts the event bus
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started")
	return nil
}

// Stop stops the event bus. Publishing afterwards fails with ErrBusStopped.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.running.Store(false)
	b.logger.Info("event bus stopped")
	return nil
}

// dispatchToHandler turns a handler panic into an error
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, env shared.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", env.Event),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return handler.Handle(ctx, env)
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
