package event

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/erp/catalogsync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type widgetPayload struct {
	ID   string `json:"id" validate:"required"`
	Size int    `json:"size" validate:"min=0"`
}

type checkedPayload struct {
	ID string `json:"id"`
}

func (p *checkedPayload) Validate() error {
	if p.ID == "forbidden" {
		return errors.New("forbidden id")
	}
	return nil
}

func newObservedDispatcher() (*Dispatcher, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return NewDispatcher(zap.New(core)), logs
}

func TestDispatcher_RoutesTypedPayload(t *testing.T) {
	d, _ := newObservedDispatcher()
	var got widgetPayload
	Register(d, "widget.upsert", func(ctx context.Context, p widgetPayload) error {
		got = p
		return nil
	})

	env := testutil.MustEnvelope(t, "widget.upsert", widgetPayload{ID: "w1", Size: 3})
	require.NoError(t, d.Handle(context.Background(), env))

	assert.Equal(t, widgetPayload{ID: "w1", Size: 3}, got)
	assert.Equal(t, DispatcherStats{Received: 1, Applied: 1}, d.Stats())
}

func TestDispatcher_DropsMalformedInput(t *testing.T) {
	called := false
	tests := []struct {
		name string
		raw  []byte
	}{
		{"not json", []byte(`{not json`)},
		{"no event tag", []byte(`{"data":{}}`)},
		{"payload wrong shape", []byte(`{"event":"widget.upsert","data":"oops"}`)},
		{"payload fails validation", []byte(`{"event":"widget.upsert","data":{"size":1}}`)},
		{"payload fails own checks", []byte(`{"event":"checked","data":{"id":"forbidden"}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, logs := newObservedDispatcher()
			Register(d, "widget.upsert", func(ctx context.Context, p widgetPayload) error {
				called = true
				return nil
			})
			Register(d, "checked", func(ctx context.Context, p checkedPayload) error {
				called = true
				return nil
			})

			err := d.HandleMessage(context.Background(), shared.Message{Topic: "t", Offset: 4, Value: tt.raw})

			assert.NoError(t, err)
			assert.False(t, called)
			assert.Equal(t, int64(1), d.Stats().Malformed)
			require.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
		})
	}
}

func TestDispatcher_ValidatesSliceElements(t *testing.T) {
	d, _ := newObservedDispatcher()
	called := false
	Register(d, "widgets.upsert", func(ctx context.Context, p []widgetPayload) error {
		called = true
		return nil
	})

	bad := testutil.MustEnvelope(t, "widgets.upsert", []widgetPayload{{ID: "w1"}, {Size: 2}})
	require.NoError(t, d.Handle(context.Background(), bad))
	assert.False(t, called)

	good := testutil.MustEnvelope(t, "widgets.upsert", []widgetPayload{{ID: "w1"}, {ID: "w2"}})
	require.NoError(t, d.Handle(context.Background(), good))
	assert.True(t, called)
}

func TestDispatcher_DropsUnknownEvent(t *testing.T) {
	d, logs := newObservedDispatcher()

	env := testutil.MustEnvelope(t, "nobody.cares", map[string]string{"id": "x"})
	require.NoError(t, d.Handle(context.Background(), env))

	assert.Equal(t, int64(1), d.Stats().Unknown)
	assert.Equal(t, 1, logs.FilterMessage("no route for event, dropping").Len())
}

func TestDispatcher_PropagatesApplierErrors(t *testing.T) {
	d, _ := newObservedDispatcher()
	storeDown := errors.New("connection reset")
	Register(d, "transient", func(ctx context.Context, p widgetPayload) error {
		return storeDown
	})
	Register(d, "fatal", func(ctx context.Context, p widgetPayload) error {
		return shared.MissingReference("article", p.ID)
	})

	err := d.Handle(context.Background(), testutil.MustEnvelope(t, "transient", widgetPayload{ID: "a"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, storeDown)
	assert.Contains(t, err.Error(), "transient: ")
	assert.False(t, shared.IsFatal(err))

	err = d.Handle(context.Background(), testutil.MustEnvelope(t, "fatal", widgetPayload{ID: "a"}))
	require.Error(t, err)
	assert.True(t, shared.IsFatal(err))
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.Equal(t, int64(2), d.Stats().Failed)
}

func TestDispatcher_DropsMalformedApplierErrors(t *testing.T) {
	d, _ := newObservedDispatcher()
	Register(d, "widget.upsert", func(ctx context.Context, p widgetPayload) error {
		return shared.Malformed(errors.New("tenant id is reserved"))
	})

	err := d.Handle(context.Background(), testutil.MustEnvelope(t, "widget.upsert", widgetPayload{ID: "a"}))

	assert.NoError(t, err)
	assert.Equal(t, DispatcherStats{Received: 1, Malformed: 1}, d.Stats())
}

func TestDispatcher_LogsDeliveryFields(t *testing.T) {
	d, logs := newObservedDispatcher()
	Register(d, "widget.upsert", func(ctx context.Context, p widgetPayload) error {
		return errors.New("boom")
	})

	env := testutil.MustEnvelope(t, "widget.upsert", widgetPayload{ID: "a"})
	msg := testutil.MustMessage(t, env, 42)
	require.Error(t, d.HandleMessage(context.Background(), msg))

	entries := logs.FilterMessage("event failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(42), fields["offset"])
	assert.Equal(t, "widget.upsert", fields["event_type"])
	assert.Equal(t, "transient", fields["failure"])
}

func TestDispatcher_EventTypes(t *testing.T) {
	d, _ := newObservedDispatcher()
	noop := func(ctx context.Context, p widgetPayload) error { return nil }
	Register(d, "b.upsert", noop)
	Register(d, "a.upsert", noop)
	Register(d, "b.upsert", noop)

	assert.Equal(t, []string{"a.upsert", "b.upsert"}, d.EventTypes())
}

func TestDispatcher_ExportsCountersByEventType(t *testing.T) {
	recorder := testutil.NewMetricRecorder(t)
	d := NewDispatcher(zap.NewNop(), WithMeter(recorder.Meter(meterName)))
	Register(d, "widget.upsert", func(ctx context.Context, p widgetPayload) error {
		if p.ID == "down" {
			return errors.New("connection reset")
		}
		return nil
	})
	ctx := context.Background()

	require.NoError(t, d.Handle(ctx, testutil.MustEnvelope(t, "widget.upsert", widgetPayload{ID: "w1"})))
	require.NoError(t, d.Handle(ctx, testutil.MustEnvelope(t, "widget.upsert", widgetPayload{ID: "w2"})))
	require.NoError(t, d.Handle(ctx, testutil.MustEnvelope(t, "widget.upsert", widgetPayload{Size: 1})))
	require.Error(t, d.Handle(ctx, testutil.MustEnvelope(t, "widget.upsert", widgetPayload{ID: "down"})))
	require.NoError(t, d.Handle(ctx, testutil.MustEnvelope(t, "nobody.cares", widgetPayload{ID: "x"})))
	require.NoError(t, d.HandleMessage(ctx, shared.Message{Topic: "t", Value: []byte(`{not json`)}))

	widget := attribute.String("event.type", "widget.upsert")
	assert.Equal(t, int64(4), recorder.Counter(t, MetricDispatchReceived, widget))
	assert.Equal(t, int64(2), recorder.Counter(t, MetricDispatchApplied, widget))
	assert.Equal(t, int64(1), recorder.Counter(t, MetricDispatchMalformed, widget))
	assert.Equal(t, int64(1), recorder.Counter(t, MetricDispatchFailed, widget))
	assert.Equal(t, int64(1), recorder.Counter(t, MetricDispatchUnknown, attribute.String("event.type", "nobody.cares")))
	assert.Equal(t, int64(1), recorder.Counter(t, MetricDispatchMalformed, attribute.String("event.type", "")))
	assert.Equal(t, int64(6), recorder.Counter(t, MetricDispatchReceived))

	assert.Equal(t, DispatcherStats{Received: 6, Malformed: 2, Unknown: 1, Applied: 2, Failed: 1}, d.Stats())
}
