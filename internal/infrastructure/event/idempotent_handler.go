package event

import (
	"context"
	"sync/atomic"

	"github.com/erp/catalogsync/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotencyMetrics tracks dedup statistics
type IdempotencyMetrics struct {
	// MessagesProcessed counts deliveries handled for the first time
	MessagesProcessed atomic.Int64

	// MessagesDuplicate counts redeliveries that were skipped
	MessagesDuplicate atomic.Int64

	// MessagesFailed counts deliveries whose handler failed
	MessagesFailed atomic.Int64
}

// Stats returns a snapshot of the current metrics
func (m *IdempotencyMetrics) Stats() IdempotencyStats {
	return IdempotencyStats{
		MessagesProcessed: m.MessagesProcessed.Load(),
		MessagesDuplicate: m.MessagesDuplicate.Load(),
		MessagesFailed:    m.MessagesFailed.Load(),
	}
}

// IdempotencyStats is a snapshot of dedup metrics
type IdempotencyStats struct {
	MessagesProcessed int64 `json:"messages_processed"`
	MessagesDuplicate int64 `json:"messages_duplicate"`
	MessagesFailed    int64 `json:"messages_failed"`
}

// IdempotentHandler wraps a MessageHandler so a delivery already applied
// successfully is skipped when the transport hands it over again.
// Keys are marked only after the wrapped handler succeeds, so a failed
// delivery is retried in full.
type IdempotentHandler struct {
	handler shared.MessageHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger
	metrics *IdempotencyMetrics
}

// IdempotentHandlerOption is a functional option for IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig sets the idempotency configuration
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// WithIdempotencyMetrics sets the metrics collector
func WithIdempotencyMetrics(metrics *IdempotencyMetrics) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.metrics = metrics
	}
}

// NewIdempotentHandler creates a new idempotent handler wrapper
func NewIdempotentHandler(
	handler shared.MessageHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	h := &IdempotentHandler{
		handler: handler,
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  logger,
		metrics: &IdempotencyMetrics{},
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// HandleMessage processes the delivery unless its key was already applied
func (h *IdempotentHandler) HandleMessage(ctx context.Context, msg shared.Message) error {
	if !h.config.Enabled || msg.Key == "" {
		return h.handler.HandleMessage(ctx, msg)
	}

	seen, err := h.store.IsProcessed(ctx, msg.Key)
	if err != nil {
		// A broken store must not block consumption; upserts tolerate replays
		h.logger.Warn("failed to check idempotency, processing anyway",
			zap.String("message_key", msg.Key),
			zap.Error(err),
		)
	} else if seen {
		h.metrics.MessagesDuplicate.Add(1)
		h.logger.Debug("duplicate delivery detected, skipping",
			zap.String("message_key", msg.Key),
		)
		return nil
	}

	if err := h.handler.HandleMessage(ctx, msg); err != nil {
		h.metrics.MessagesFailed.Add(1)
		return err
	}

	h.metrics.MessagesProcessed.Add(1)
	if _, err := h.store.MarkProcessed(ctx, msg.Key, h.config.TTL); err != nil {
		h.logger.Warn("failed to mark delivery as processed",
			zap.String("message_key", msg.Key),
			zap.Error(err),
		)
	}
	return nil
}

// GetMetrics returns the metrics for this handler
func (h *IdempotentHandler) GetMetrics() *IdempotencyMetrics {
	return h.metrics
}

// Ensure IdempotentHandler implements MessageHandler
var _ shared.MessageHandler = (*IdempotentHandler)(nil)
