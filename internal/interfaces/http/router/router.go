// Package router assembles the gin engine of the ops HTTP surface.
package router

import (
	"github.com/erp/catalogsync/internal/infrastructure/logger"
	"github.com/erp/catalogsync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Probe paths are served outside the versioned API, untraced and logged quietly
var probePaths = []string{"/health", "/ready"}

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// ProbeRegistrar mounts unversioned probe endpoints
type ProbeRegistrar interface {
	RegisterProbes(r gin.IRoutes)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	probes     ProbeRegistrar
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithProbes mounts the probe endpoints at the root
func WithProbes(p ProbeRegistrar) RouterOption {
	return func(r *Router) {
		r.probes = p
	}
}

// NewEngine creates a gin engine with recovery, request ids, tracing and
// request logging installed
func NewEngine(log *zap.Logger, tracing middleware.TracingConfig) *gin.Engine {
	tracing.SkipPaths = append(tracing.SkipPaths, probePaths...)

	engine := gin.New()
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(tracing),
		middleware.SpanEnricher(),
		logger.GinMiddleware(log, probePaths...),
	)
	return engine
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	if r.probes != nil {
		r.probes.RegisterProbes(r.engine)
	}

	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// RouteFunc adapts a plain function to RouteRegistrar
type RouteFunc func(rg *gin.RouterGroup)

// RegisterRoutes calls f
func (f RouteFunc) RegisterRoutes(rg *gin.RouterGroup) {
	f(rg)
}
