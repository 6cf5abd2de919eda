package handler

import (
	"context"
	"fmt"

	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// StatsSource returns one section of the /stats document
type StatsSource func(ctx context.Context) (any, error)

// OutboxCounter is the part of the outbox repository /stats reads
type OutboxCounter interface {
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
}

// StatsHandler aggregates the counters of the running pipeline
type StatsHandler struct {
	BaseHandler
	names   []string
	sources map[string]StatsSource
}

// NewStatsHandler creates an empty stats handler
func NewStatsHandler() *StatsHandler {
	return &StatsHandler{sources: make(map[string]StatsSource)}
}

// With adds a named section. Adding a name twice replaces the source.
func (h *StatsHandler) With(name string, source StatsSource) *StatsHandler {
	if _, ok := h.sources[name]; !ok {
		h.names = append(h.names, name)
	}
	h.sources[name] = source
	return h
}

// WithCounter adds a section backed by an in-process metrics snapshot
func WithCounter[S any](h *StatsHandler, name string, snapshot func() S) *StatsHandler {
	return h.With(name, func(context.Context) (any, error) {
		return snapshot(), nil
	})
}

// WithOutbox adds the outbox entry counts per status
func (h *StatsHandler) WithOutbox(counter OutboxCounter) *StatsHandler {
	return h.With("outbox", func(ctx context.Context) (any, error) {
		counts, err := counter.CountByStatus(ctx)
		if err != nil {
			return nil, err
		}
		return toOutboxStatsResponse(counts), nil
	})
}

// Names returns the configured sections in registration order
func (h *StatsHandler) Names() []string {
	return append([]string(nil), h.names...)
}

// Get serves GET /stats
func (h *StatsHandler) Get(c *gin.Context) {
	out := make(map[string]any, len(h.names))
	for _, name := range h.names {
		section, err := h.sources[name](c.Request.Context())
		if err != nil {
			h.HandleError(c, fmt.Errorf("failed to read %s stats: %w", name, err))
			return
		}
		out[name] = section
	}
	h.Success(c, out)
}
