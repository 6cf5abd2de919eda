// Package event routes inbound envelopes to their appliers and carries the
// in-process bus, the delivery dedup wrapper and the outbound retry outbox.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/erp/catalogsync/internal/infrastructure/logger"
	"github.com/erp/catalogsync/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	tracerName = "github.com/erp/catalogsync/internal/infrastructure/event"
	meterName  = tracerName
)

// Exported dispatch counter names, each tagged with event.type
const (
	MetricDispatchReceived  = "catalogsync.dispatch.received"
	MetricDispatchMalformed = "catalogsync.dispatch.malformed"
	MetricDispatchUnknown   = "catalogsync.dispatch.unknown"
	MetricDispatchApplied   = "catalogsync.dispatch.applied"
	MetricDispatchFailed    = "catalogsync.dispatch.failed"
)

var dispatchCounters = []telemetry.CounterSpec{
	{Name: MetricDispatchReceived, Description: "Envelopes received by the dispatcher"},
	{Name: MetricDispatchMalformed, Description: "Envelopes dropped as malformed"},
	{Name: MetricDispatchUnknown, Description: "Envelopes dropped for an unrouted event type"},
	{Name: MetricDispatchApplied, Description: "Envelopes applied"},
	{Name: MetricDispatchFailed, Description: "Envelopes handed back to the transport after a failure"},
}

// DispatcherMetrics is the in-process snapshot of dispatch outcomes served on
// the stats endpoint; the same outcomes are exported as OTel counters.
type DispatcherMetrics struct {
	Received  atomic.Int64
	Malformed atomic.Int64
	Unknown   atomic.Int64
	Applied   atomic.Int64
	Failed    atomic.Int64
}

// Stats returns a snapshot of the current metrics
func (m *DispatcherMetrics) Stats() DispatcherStats {
	return DispatcherStats{
		Received:  m.Received.Load(),
		Malformed: m.Malformed.Load(),
		Unknown:   m.Unknown.Load(),
		Applied:   m.Applied.Load(),
		Failed:    m.Failed.Load(),
	}
}

// DispatcherStats is a snapshot of dispatcher metrics
type DispatcherStats struct {
	Received  int64 `json:"received"`
	Malformed int64 `json:"malformed"`
	Unknown   int64 `json:"unknown"`
	Applied   int64 `json:"applied"`
	Failed    int64 `json:"failed"`
}

// route decodes and applies the data of one event type
type route func(ctx context.Context, data json.RawMessage) error

// validatable is implemented by payloads with rules struct tags cannot express
type validatable interface {
	Validate() error
}

// Dispatcher routes envelopes to the applier registered for their event tag.
// It never retries: applier errors go back to the transport, malformed
// input and unknown tags are dropped.
type Dispatcher struct {
	mu       sync.RWMutex
	routes   map[string]route
	validate *validator.Validate
	logger   *zap.Logger
	tracer   trace.Tracer
	meter    metric.Meter
	counters telemetry.CounterSet
	metrics  DispatcherMetrics
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithMeter records dispatch counters on meter instead of the global provider
func WithMeter(meter metric.Meter) DispatcherOption {
	return func(d *Dispatcher) {
		d.meter = meter
	}
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher(logger *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		routes:   make(map[string]route),
		validate: validator.New(),
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		meter:    otel.Meter(meterName),
	}
	for _, opt := range opts {
		opt(d)
	}
	counters, err := telemetry.NewCounterSet(d.meter, dispatchCounters...)
	if err != nil {
		logger.Warn("dispatch counters unavailable, not exporting", zap.Error(err))
	}
	d.counters = counters
	return d
}

// Register binds eventType to fn. The envelope data is decoded into P and
// validated before fn runs. Registering the same type twice replaces the
// earlier route.
func Register[P any](d *Dispatcher, eventType string, fn func(ctx context.Context, payload P) error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routes[eventType] = func(ctx context.Context, data json.RawMessage) error {
		var payload P
		if err := json.Unmarshal(data, &payload); err != nil {
			return shared.Malformed(fmt.Errorf("failed to decode %s payload: %w", eventType, err))
		}
		if err := d.check(&payload); err != nil {
			return shared.Malformed(fmt.Errorf("invalid %s payload: %w", eventType, err))
		}
		return fn(ctx, payload)
	}
}

// check runs struct tag validation and the payload's own Validate
func (d *Dispatcher) check(payload any) error {
	v := reflect.Indirect(reflect.ValueOf(payload))
	switch v.Kind() {
	case reflect.Struct:
		if err := d.validate.Struct(payload); err != nil {
			return err
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			elem := v.Index(i)
			if reflect.Indirect(elem).Kind() != reflect.Struct {
				continue
			}
			if err := d.validate.Struct(elem.Interface()); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
	}
	if vv, ok := payload.(validatable); ok {
		return vv.Validate()
	}
	return nil
}

// EventTypes returns the registered event types, sorted
func (d *Dispatcher) EventTypes() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	types := make([]string, 0, len(d.routes))
	for t := range d.routes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// HandleMessage decodes a raw delivery and dispatches it
func (d *Dispatcher) HandleMessage(ctx context.Context, msg shared.Message) error {
	ctx = logger.WithDelivery(ctx, logger.Delivery{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	})

	env, err := shared.DecodeEnvelope(msg.Value)
	if err != nil {
		d.metrics.Received.Add(1)
		d.metrics.Malformed.Add(1)
		d.count(ctx, "", MetricDispatchReceived)
		d.count(ctx, "", MetricDispatchMalformed)
		d.log(ctx).Warn("dropping malformed message", zap.Error(err))
		return nil
	}
	return d.Handle(ctx, env)
}

// Handle dispatches one decoded envelope
func (d *Dispatcher) Handle(ctx context.Context, env shared.Envelope) error {
	d.metrics.Received.Add(1)
	d.count(ctx, env.Event, MetricDispatchReceived)
	ctx = logger.WithContext(ctx, d.logger)
	ctx = logger.WithEventType(ctx, env.Event)

	ctx, span := d.tracer.Start(ctx, "dispatch "+env.Event,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("event.type", env.Event)),
	)
	defer span.End()

	d.mu.RLock()
	apply, ok := d.routes[env.Event]
	d.mu.RUnlock()
	if !ok {
		d.metrics.Unknown.Add(1)
		d.count(ctx, env.Event, MetricDispatchUnknown)
		d.log(ctx).Debug("no route for event, dropping")
		return nil
	}

	err := apply(ctx, env.Data)
	switch {
	case err == nil:
		d.metrics.Applied.Add(1)
		d.count(ctx, env.Event, MetricDispatchApplied)
		d.log(ctx).Debug("event applied")
		return nil
	case shared.IsMalformed(err):
		d.metrics.Malformed.Add(1)
		d.count(ctx, env.Event, MetricDispatchMalformed)
		span.SetAttributes(attribute.Bool("event.dropped", true))
		d.log(ctx).Warn("dropping malformed event", zap.Error(err))
		return nil
	default:
		d.metrics.Failed.Add(1)
		d.count(ctx, env.Event, MetricDispatchFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.log(ctx).Error("event failed",
			zap.String("failure", shared.KindOf(err).String()),
			zap.Error(err),
		)
		return fmt.Errorf("%s: %w", env.Event, err)
	}
}

// Stats returns a snapshot of the dispatch counters
func (d *Dispatcher) Stats() DispatcherStats {
	return d.metrics.Stats()
}

// count increments an exported counter. Undecodable deliveries carry no
// event tag and are recorded with an empty event.type.
func (d *Dispatcher) count(ctx context.Context, eventType, name string) {
	d.counters.Inc(ctx, name, attribute.String("event.type", eventType))
}

func (d *Dispatcher) log(ctx context.Context) *zap.Logger {
	return d.logger.With(logger.Fields(ctx)...)
}

var (
	_ shared.EventHandler   = (*Dispatcher)(nil)
	_ shared.MessageHandler = (*Dispatcher)(nil)
)
