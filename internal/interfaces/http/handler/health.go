package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/erp/catalogsync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by the database wrapper
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes
type HealthHandler struct {
	BaseHandler
	db      Pinger
	timeout time.Duration
}

// NewHealthHandler creates a probe handler checking db for readiness
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db, timeout: 2 * time.Second}
}

// ProbeResponse is the body of both probes
type ProbeResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

// Health reports that the process is up
func (h *HealthHandler) Health(c *gin.Context) {
	h.Success(c, ProbeResponse{Status: "ok"})
}

// Ready reports whether the database answers
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, dto.Response{
			Success: false,
			Data:    ProbeResponse{Status: "unavailable", Database: "down"},
			Error:   &dto.ErrorInfo{Code: dto.ErrCodeUnavailable, Message: "database is not reachable"},
		})
		return
	}
	h.Success(c, ProbeResponse{Status: "ok", Database: "up"})
}

// RegisterProbes mounts /health and /ready on r
func (h *HealthHandler) RegisterProbes(r gin.IRoutes) {
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
}
