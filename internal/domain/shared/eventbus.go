package shared

import "context"

// EventHandler handles one decoded envelope
type EventHandler interface {
	// Handle processes an envelope
	Handle(ctx context.Context, env Envelope) error
	// EventTypes returns the event types this handler is interested in
	// An empty slice means the handler receives all events
	EventTypes() []string
}

// MessageHandler handles a raw delivery from a transport
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg Message) error
}

// MessageHandlerFunc adapts a function to MessageHandler
type MessageHandlerFunc func(ctx context.Context, msg Message) error

// HandleMessage calls f(ctx, msg)
func (f MessageHandlerFunc) HandleMessage(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// EventPublisher publishes envelopes to the outbound topic
type EventPublisher interface {
	// Publish publishes one or more envelopes. key partitions the messages.
	Publish(ctx context.Context, key string, envelopes ...Envelope) error
}

// EventSubscriber subscribes to envelopes
type EventSubscriber interface {
	// Subscribe registers a handler for specific event types
	// If no event types are provided, the handler's own EventTypes are used
	Subscribe(handler EventHandler, eventTypes ...string)
	// Unsubscribe removes a handler from the subscription list
	Unsubscribe(handler EventHandler)
}

// EventBus combines publisher and subscriber capabilities
type EventBus interface {
	EventPublisher
	EventSubscriber
	// Start starts the event bus (e.g., background processing)
	Start(ctx context.Context) error
	// Stop gracefully stops the event bus
	Stop(ctx context.Context) error
}
