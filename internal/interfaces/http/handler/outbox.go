package handler

import (
	"context"
	"errors"
	"time"

	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/erp/catalogsync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OutboxStore is the part of the outbox repository the admin endpoints use
type OutboxStore interface {
	OutboxCounter
	FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error)
	Update(ctx context.Context, entry *shared.OutboxEntry) error
}

// OutboxHandler lets operators inspect and replay synchro events that
// exhausted their retries
type OutboxHandler struct {
	BaseHandler
	store OutboxStore
}

// NewOutboxHandler creates a new outbox handler
func NewOutboxHandler(store OutboxStore) *OutboxHandler {
	return &OutboxHandler{store: store}
}

// RegisterRoutes mounts the outbox endpoints under /system/outbox
func (h *OutboxHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/system/outbox")
	g.GET("/stats", h.GetStats)
	g.GET("/dead", h.GetDeadLetterEntries)
	g.GET("/:id", h.GetEntry)
	g.POST("/:id/retry", h.RetryDeadEntry)
}

// GetDeadLetterEntries serves GET /system/outbox/dead
func (h *OutboxHandler) GetDeadLetterEntries(c *gin.Context) {
	var page dto.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	page.Normalize()

	entries, total, err := h.store.FindDead(c.Request.Context(), page.Page, page.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]OutboxEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = toOutboxEntryResponse(e)
	}
	h.SuccessWithMeta(c, out, total, page.Page, page.PageSize)
}

// GetEntry serves GET /system/outbox/:id
func (h *OutboxHandler) GetEntry(c *gin.Context) {
	entry, ok := h.find(c)
	if !ok {
		return
	}
	h.Success(c, toOutboxEntryResponse(entry))
}

// RetryDeadEntry serves POST /system/outbox/:id/retry. Only dead entries
// can be replayed; the processor picks them up on its next poll.
func (h *OutboxHandler) RetryDeadEntry(c *gin.Context) {
	entry, ok := h.find(c)
	if !ok {
		return
	}

	if err := entry.ResetForRetry(); err != nil {
		h.HandleError(c, shared.NewDomainError("INVALID_STATE", err.Error()))
		return
	}
	if err := h.store.Update(c.Request.Context(), entry); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOutboxEntryResponse(entry))
}

// GetStats serves GET /system/outbox/stats
func (h *OutboxHandler) GetStats(c *gin.Context) {
	counts, err := h.store.CountByStatus(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOutboxStatsResponse(counts))
}

func (h *OutboxHandler) find(c *gin.Context) (*shared.OutboxEntry, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid entry ID")
		return nil, false
	}

	entry, err := h.store.FindByID(c.Request.Context(), id)
	if errors.Is(err, shared.ErrNotFound) {
		h.NotFound(c, "Outbox entry not found")
		return nil, false
	}
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return entry, true
}

// OutboxEntryResponse represents an outbox entry in API response
type OutboxEntryResponse struct {
	ID          string  `json:"id"`
	EventType   string  `json:"event_type"`
	MessageKey  string  `json:"message_key"`
	Status      string  `json:"status"`
	RetryCount  int     `json:"retry_count"`
	MaxRetries  int     `json:"max_retries"`
	LastError   string  `json:"last_error,omitempty"`
	NextRetryAt *string `json:"next_retry_at,omitempty"`
	ProcessedAt *string `json:"processed_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// OutboxStatsResponse represents outbox statistics response
type OutboxStatsResponse struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

func toOutboxEntryResponse(e *shared.OutboxEntry) OutboxEntryResponse {
	resp := OutboxEntryResponse{
		ID:         e.ID.String(),
		EventType:  e.EventType,
		MessageKey: e.MessageKey,
		Status:     string(e.Status),
		RetryCount: e.RetryCount,
		MaxRetries: e.MaxRetries,
		LastError:  e.LastError,
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  e.UpdatedAt.Format(time.RFC3339),
	}
	if e.NextRetryAt != nil {
		t := e.NextRetryAt.Format(time.RFC3339)
		resp.NextRetryAt = &t
	}
	if e.ProcessedAt != nil {
		t := e.ProcessedAt.Format(time.RFC3339)
		resp.ProcessedAt = &t
	}
	return resp
}

func toOutboxStatsResponse(counts map[shared.OutboxStatus]int64) OutboxStatsResponse {
	resp := OutboxStatsResponse{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}
	resp.Total = resp.Pending + resp.Processing + resp.Sent + resp.Failed + resp.Dead
	return resp
}
