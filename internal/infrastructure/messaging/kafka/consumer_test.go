package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/erp/catalogsync/internal/infrastructure/config"
	"github.com/erp/catalogsync/internal/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func testConsumerConfig() config.ConsumerConfig {
	return config.ConsumerConfig{
		Workers:      2,
		QueueSize:    4,
		RetryInitial: time.Millisecond,
		RetryMax:     5 * time.Millisecond,
	}
}

func msgAt(partition int, offset int64) kafka.Message {
	return kafka.Message{
		Topic:     "catalog-events",
		Partition: partition,
		Offset:    offset,
		Key:       []byte("c1"),
		Value:     []byte(`{"event":"catalog.published","data":{"id":"c1"}}`),
	}
}

// runToEnd runs the consumer until the reader's queue is drained
func runToEnd(t *testing.T, c *Consumer, r *fakeReader) {
	t.Helper()
	r.finish()
	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestConsumer_CommitsSuccessfulMessages(t *testing.T) {
	reader := newFakeReader(msgAt(0, 1), msgAt(1, 1), msgAt(0, 2))
	var mu sync.Mutex
	var keys []string
	handler := shared.MessageHandlerFunc(func(ctx context.Context, msg shared.Message) error {
		mu.Lock()
		defer mu.Unlock()
		keys = append(keys, msg.Key)
		return nil
	})

	c := NewConsumer(reader, handler, testConsumerConfig(), zap.NewNop())
	runToEnd(t, c, reader)

	assert.Len(t, reader.commits(), 3)
	assert.ElementsMatch(t, []string{"catalog-events/0/1", "catalog-events/1/1", "catalog-events/0/2"}, keys)
	assert.Equal(t, ConsumerStats{Fetched: 3, Committed: 3}, c.Stats())
}

func TestConsumer_KeepsPartitionOrder(t *testing.T) {
	var msgs []kafka.Message
	for off := int64(0); off < 20; off++ {
		msgs = append(msgs, msgAt(int(off%3), off))
	}
	reader := newFakeReader(msgs...)

	var mu sync.Mutex
	seen := map[int][]int64{}
	handler := shared.MessageHandlerFunc(func(ctx context.Context, msg shared.Message) error {
		mu.Lock()
		defer mu.Unlock()
		seen[msg.Partition] = append(seen[msg.Partition], msg.Offset)
		return nil
	})

	c := NewConsumer(reader, handler, testConsumerConfig(), zap.NewNop())
	runToEnd(t, c, reader)

	for partition, offsets := range seen {
		assert.IsIncreasing(t, offsets, "partition %d", partition)
	}
	assert.Len(t, reader.commits(), 20)
}

func TestConsumer_RetriesTransientFailures(t *testing.T) {
	reader := newFakeReader(msgAt(0, 7))
	calls := 0
	handler := shared.MessageHandlerFunc(func(ctx context.Context, msg shared.Message) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	c := NewConsumer(reader, handler, testConsumerConfig(), zap.NewNop())
	runToEnd(t, c, reader)

	assert.Equal(t, 3, calls)
	assert.Len(t, reader.commits(), 1)
	assert.Equal(t, int64(2), c.Stats().Retried)
}

func TestConsumer_DeadLettersFatalFailures(t *testing.T) {
	source := msgAt(2, 11)
	source.Headers = []kafka.Header{{Key: "trace", Value: []byte("abc")}}
	reader := newFakeReader(source)
	dlq := &fakeWriter{failures: 1, err: errors.New("leader not available")}
	calls := 0
	handler := shared.MessageHandlerFunc(func(ctx context.Context, msg shared.Message) error {
		calls++
		return shared.MissingReference("article", "A9")
	})

	c := NewConsumer(reader, handler, testConsumerConfig(), zap.NewNop(),
		WithDeadLetter(dlq, "catalog-events-dlq"))
	runToEnd(t, c, reader)

	assert.Equal(t, 1, calls, "fatal failures are not retried")
	written := dlq.messages()
	require.Len(t, written, 1)
	out := written[0]
	assert.Equal(t, "catalog-events-dlq", out.Topic)
	assert.Equal(t, source.Value, out.Value)
	assert.Equal(t, source.Key, out.Key)
	assert.Equal(t, "abc", header(out, "trace"))
	assert.Contains(t, header(out, HeaderError), "required article A9 not found")
	assert.Equal(t, "catalog-events", header(out, HeaderSourceTopic))
	assert.Equal(t, "2", header(out, HeaderSourcePartition))
	assert.Equal(t, "11", header(out, HeaderSourceOffset))

	assert.Len(t, reader.commits(), 1)
	assert.Equal(t, int64(1), c.Stats().DeadLettered)
}

func TestConsumer_DeadLettersWhenRetryBudgetIsSpent(t *testing.T) {
	reader := newFakeReader(msgAt(0, 1))
	dlq := &fakeWriter{}
	handler := shared.MessageHandlerFunc(func(ctx context.Context, msg shared.Message) error {
		return errors.New("deadlock detected")
	})
	cfg := testConsumerConfig()
	cfg.RetryMaxElapsed = 20 * time.Millisecond

	c := NewConsumer(reader, handler, cfg, zap.NewNop(), WithDeadLetter(dlq, "dlq"))
	runToEnd(t, c, reader)

	require.Len(t, dlq.messages(), 1)
	assert.Contains(t, header(dlq.messages()[0], HeaderError), "deadlock detected")
	assert.Len(t, reader.commits(), 1)
}

func TestConsumer_CommitsMalformedWithoutDeadLetter(t *testing.T) {
	reader := newFakeReader(msgAt(0, 1))
	dlq := &fakeWriter{}
	handler := shared.MessageHandlerFunc(func(ctx context.Context, msg shared.Message) error {
		return shared.Malformed(errors.New("bad json"))
	})

	c := NewConsumer(reader, handler, testConsumerConfig(), zap.NewNop(), WithDeadLetter(dlq, "dlq"))
	runToEnd(t, c, reader)

	assert.Empty(t, dlq.messages())
	assert.Len(t, reader.commits(), 1)
}

func TestConsumer_FatalWithoutDeadLetterTopicIsSkipped(t *testing.T) {
	reader := newFakeReader(msgAt(0, 1))
	handler := shared.MessageHandlerFunc(func(ctx context.Context, msg shared.Message) error {
		return shared.MissingReference("article", "A1")
	})

	c := NewConsumer(reader, handler, testConsumerConfig(), zap.NewNop())
	runToEnd(t, c, reader)

	assert.Len(t, reader.commits(), 1)
}

func TestConsumer_ShutdownLeavesFailingMessageUncommitted(t *testing.T) {
	reader := newFakeReader(msgAt(0, 1))
	attempted := make(chan struct{}, 1)
	handler := shared.MessageHandlerFunc(func(ctx context.Context, msg shared.Message) error {
		select {
		case attempted <- struct{}{}:
		default:
		}
		return errors.New("database is down")
	})

	c := NewConsumer(reader, handler, testConsumerConfig(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	<-attempted
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.Empty(t, reader.commits())
}

func TestConsumer_Close(t *testing.T) {
	reader := newFakeReader()
	dlq := &fakeWriter{}
	c := NewConsumer(reader, shared.MessageHandlerFunc(func(context.Context, shared.Message) error { return nil }),
		testConsumerConfig(), zap.NewNop(), WithDeadLetter(dlq, "dlq"))

	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
	assert.True(t, dlq.closed)
}

func TestConsumer_ExportsCounters(t *testing.T) {
	retried := msgAt(0, 1)
	fatal := msgAt(1, 2)
	fatal.Headers = []kafka.Header{{Key: HeaderEventType, Value: []byte("article.upsert")}}
	reader := newFakeReader(retried, fatal)
	dlq := &fakeWriter{}

	var mu sync.Mutex
	attempts := 0
	handler := shared.MessageHandlerFunc(func(ctx context.Context, msg shared.Message) error {
		if msg.Partition == 1 {
			return shared.MissingReference("article", "A9")
		}
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	recorder := testutil.NewMetricRecorder(t)
	c := NewConsumer(reader, handler, testConsumerConfig(), zap.NewNop(),
		WithDeadLetter(dlq, "dlq"), WithConsumerMeter(recorder.Meter(meterName)))
	runToEnd(t, c, reader)

	topic := attribute.String("messaging.destination", "catalog-events")
	assert.Equal(t, int64(2), recorder.Counter(t, MetricConsumerFetched, topic))
	assert.Equal(t, int64(2), recorder.Counter(t, MetricConsumerCommitted, topic))
	assert.Equal(t, int64(2), recorder.Counter(t, MetricConsumerRetried, topic,
		attribute.String("event.type", "catalog.published")))
	assert.Equal(t, int64(1), recorder.Counter(t, MetricConsumerDeadLettered, topic,
		attribute.String("event.type", "article.upsert")))
	assert.Equal(t, ConsumerStats{Fetched: 2, Committed: 2, Retried: 2, DeadLettered: 1}, c.Stats())
}

func TestEventType(t *testing.T) {
	tagged := msgAt(0, 1)
	tagged.Headers = []kafka.Header{{Key: HeaderEventType, Value: []byte("ouvrage.upsert")}}
	garbage := msgAt(0, 2)
	garbage.Value = []byte("{not json")

	assert.Equal(t, "ouvrage.upsert", eventType(tagged).Value.AsString())
	assert.Equal(t, "catalog.published", eventType(msgAt(0, 3)).Value.AsString())
	assert.Equal(t, "", eventType(garbage).Value.AsString())
}

func TestToMessage(t *testing.T) {
	now := time.Now()
	km := msgAt(3, 99)
	km.Time = now

	msg := toMessage(km)

	assert.Equal(t, "catalog-events/3/99", msg.Key)
	assert.Equal(t, 3, msg.Partition)
	assert.Equal(t, int64(99), msg.Offset)
	assert.Equal(t, now, msg.ReceivedAt)
	assert.Equal(t, km.Value, msg.Value)
}
