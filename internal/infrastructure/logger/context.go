package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	deliveryKey  contextKey = "delivery"
	eventTypeKey contextKey = "event_type"
	tenantIDKey  contextKey = "tenant_id"
	catalogIDKey contextKey = "catalog_id"
)

// Delivery describes the transport position of the message being handled
type Delivery struct {
	Topic     string
	Partition int
	Offset    int64
}

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithDelivery records the delivery position in ctx
func WithDelivery(ctx context.Context, d Delivery) context.Context {
	return context.WithValue(ctx, deliveryKey, d)
}

// GetDelivery returns the delivery position recorded in ctx
func GetDelivery(ctx context.Context) (Delivery, bool) {
	d, ok := ctx.Value(deliveryKey).(Delivery)
	return d, ok
}

// WithEventType records the event type being dispatched
func WithEventType(ctx context.Context, eventType string) context.Context {
	return context.WithValue(ctx, eventTypeKey, eventType)
}

// WithTenantID records the tenant affected by the current message
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// WithCatalogID records the catalog affected by the current message
func WithCatalogID(ctx context.Context, catalogID string) context.Context {
	return context.WithValue(ctx, catalogIDKey, catalogID)
}

func stringValue(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// GetTraceID extracts the trace ID from the context's span, if any
func GetTraceID(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// Fields returns the zap fields describing everything recorded in ctx
func Fields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		fields = append(fields,
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	if d, ok := GetDelivery(ctx); ok {
		fields = append(fields,
			zap.String("topic", d.Topic),
			zap.Int("partition", d.Partition),
			zap.Int64("offset", d.Offset),
		)
	}
	if v := stringValue(ctx, eventTypeKey); v != "" {
		fields = append(fields, zap.String("event_type", v))
	}
	if v := stringValue(ctx, catalogIDKey); v != "" {
		fields = append(fields, zap.String("catalog_id", v))
	}
	if v := stringValue(ctx, tenantIDKey); v != "" {
		fields = append(fields, zap.String("tenant_id", v))
	}
	return fields
}

// L returns the context logger enriched with the context's fields.
// Usage: logger.L(ctx).Info("message", zap.String("key", "value"))
func L(ctx context.Context) *zap.Logger {
	return FromContext(ctx).With(Fields(ctx)...)
}
