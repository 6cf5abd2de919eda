package event

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/erp/catalogsync/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockMessageHandler is a mock implementation of shared.MessageHandler
type MockMessageHandler struct {
	mock.Mock
}

func (m *MockMessageHandler) HandleMessage(ctx context.Context, msg shared.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

func delivery(offset int64) shared.Message {
	return shared.Message{
		Key:    fmt.Sprintf("catalog-events/0/%d", offset),
		Topic:  "catalog-events",
		Offset: offset,
		Value:  []byte(`{"event":"unit.upsert","data":{"code":"M"}}`),
	}
}

func TestIdempotentHandler_NewDelivery(t *testing.T) {
	handler := new(MockMessageHandler)
	store := new(MockIdempotencyStore)
	msg := delivery(1)
	ttl := shared.DefaultIdempotencyConfig().TTL

	store.On("IsProcessed", mock.Anything, msg.Key).Return(false, nil)
	handler.On("HandleMessage", mock.Anything, msg).Return(nil)
	store.On("MarkProcessed", mock.Anything, msg.Key, ttl).Return(true, nil)

	h := NewIdempotentHandler(handler, store, zap.NewNop())
	require.NoError(t, h.HandleMessage(context.Background(), msg))

	handler.AssertExpectations(t)
	store.AssertExpectations(t)
	assert.Equal(t, IdempotencyStats{MessagesProcessed: 1}, h.GetMetrics().Stats())
}

func TestIdempotentHandler_DuplicateDelivery(t *testing.T) {
	handler := new(MockMessageHandler)
	store := new(MockIdempotencyStore)
	msg := delivery(2)

	store.On("IsProcessed", mock.Anything, msg.Key).Return(true, nil)

	h := NewIdempotentHandler(handler, store, zap.NewNop())
	require.NoError(t, h.HandleMessage(context.Background(), msg))

	handler.AssertNotCalled(t, "HandleMessage", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, int64(1), h.GetMetrics().Stats().MessagesDuplicate)
}

func TestIdempotentHandler_FailureIsNotMarked(t *testing.T) {
	handler := new(MockMessageHandler)
	store := new(MockIdempotencyStore)
	msg := delivery(3)
	handlerErr := errors.New("store down")

	store.On("IsProcessed", mock.Anything, msg.Key).Return(false, nil)
	handler.On("HandleMessage", mock.Anything, msg).Return(handlerErr)

	h := NewIdempotentHandler(handler, store, zap.NewNop())
	err := h.HandleMessage(context.Background(), msg)

	assert.ErrorIs(t, err, handlerErr)
	store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, int64(1), h.GetMetrics().Stats().MessagesFailed)
}

func TestIdempotentHandler_StoreErrorsDoNotBlock(t *testing.T) {
	handler := new(MockMessageHandler)
	store := new(MockIdempotencyStore)
	msg := delivery(4)

	store.On("IsProcessed", mock.Anything, msg.Key).Return(false, errors.New("redis down"))
	handler.On("HandleMessage", mock.Anything, msg).Return(nil)
	store.On("MarkProcessed", mock.Anything, msg.Key, mock.Anything).Return(false, errors.New("redis down"))

	h := NewIdempotentHandler(handler, store, zap.NewNop())
	require.NoError(t, h.HandleMessage(context.Background(), msg))

	handler.AssertExpectations(t)
}

func TestIdempotentHandler_Disabled(t *testing.T) {
	handler := new(MockMessageHandler)
	store := new(MockIdempotencyStore)
	msg := delivery(5)
	handler.On("HandleMessage", mock.Anything, msg).Return(nil).Twice()

	h := NewIdempotentHandler(handler, store, zap.NewNop(),
		WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}))
	require.NoError(t, h.HandleMessage(context.Background(), msg))
	require.NoError(t, h.HandleMessage(context.Background(), msg))

	handler.AssertExpectations(t)
	store.AssertNotCalled(t, "IsProcessed", mock.Anything, mock.Anything)
}

func TestIdempotentHandler_KeylessDeliveryBypassesStore(t *testing.T) {
	handler := new(MockMessageHandler)
	store := new(MockIdempotencyStore)
	msg := shared.Message{Value: []byte(`{}`)}
	handler.On("HandleMessage", mock.Anything, msg).Return(nil)

	h := NewIdempotentHandler(handler, store, zap.NewNop())
	require.NoError(t, h.HandleMessage(context.Background(), msg))

	store.AssertNotCalled(t, "IsProcessed", mock.Anything, mock.Anything)
}

func TestIdempotentHandler_SharedMetrics(t *testing.T) {
	shared1 := &IdempotencyMetrics{}
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	ok := shared.MessageHandlerFunc(func(ctx context.Context, msg shared.Message) error { return nil })

	h1 := NewIdempotentHandler(ok, store, zap.NewNop(), WithIdempotencyMetrics(shared1))
	h2 := NewIdempotentHandler(ok, store, zap.NewNop(), WithIdempotencyMetrics(shared1))

	require.NoError(t, h1.HandleMessage(context.Background(), delivery(6)))
	require.NoError(t, h2.HandleMessage(context.Background(), delivery(6)))

	assert.Equal(t, IdempotencyStats{MessagesProcessed: 1, MessagesDuplicate: 1}, shared1.Stats())
}

func TestIdempotentHandler_RetryAfterFailureIsApplied(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	var calls atomic.Int32
	flaky := shared.MessageHandlerFunc(func(ctx context.Context, msg shared.Message) error {
		if calls.Add(1) == 1 {
			return errors.New("deadlock detected")
		}
		return nil
	})
	h := NewIdempotentHandler(flaky, store, zap.NewNop())
	msg := delivery(7)

	require.Error(t, h.HandleMessage(context.Background(), msg))
	require.NoError(t, h.HandleMessage(context.Background(), msg))
	require.NoError(t, h.HandleMessage(context.Background(), msg))

	assert.Equal(t, int32(2), calls.Load(), "the redelivery after success is skipped")
}

func TestIdempotentHandler_SequentialRedeliveries(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	applied := 0
	h := NewIdempotentHandler(shared.MessageHandlerFunc(func(ctx context.Context, msg shared.Message) error {
		applied++
		return nil
	}), store, zap.NewNop())

	for i := 0; i < 5; i++ {
		require.NoError(t, h.HandleMessage(context.Background(), delivery(8)))
	}

	assert.Equal(t, 1, applied)
	assert.Equal(t, int64(4), h.GetMetrics().Stats().MessagesDuplicate)
}
