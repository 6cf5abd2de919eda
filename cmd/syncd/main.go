// Command syncd consumes catalog change events and applies them to the
// tenant-scoped replica of the product catalog.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/catalogsync/internal/application/catalogsync"
	"github.com/erp/catalogsync/internal/application/reference"
	"github.com/erp/catalogsync/internal/application/synchro"
	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/erp/catalogsync/internal/infrastructure/config"
	"github.com/erp/catalogsync/internal/infrastructure/event"
	"github.com/erp/catalogsync/internal/infrastructure/logger"
	"github.com/erp/catalogsync/internal/infrastructure/persistence"
	"github.com/erp/catalogsync/internal/infrastructure/telemetry"
	"github.com/erp/catalogsync/internal/interfaces/http/handler"
	"github.com/erp/catalogsync/internal/interfaces/http/middleware"
	"github.com/erp/catalogsync/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, zap.String("service", cfg.App.Name))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("catalogsync stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info("Starting catalogsync",
		zap.String("env", cfg.App.Env),
		zap.String("messaging_driver", cfg.Messaging.Driver),
	)

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.FromConfig(cfg.Telemetry, cfg.App.Name), log)
	if err != nil {
		return err
	}
	defer func() {
		_ = tp.Shutdown(context.Background())
	}()

	// Installed globally so the dispatcher and consumer counters export through it
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsFromConfig(cfg.Telemetry, cfg.App.Name), log)
	if err != nil {
		return err
	}
	defer func() {
		_ = mp.Shutdown(context.Background())
	}()

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing
	if cfg.Database.SlowThreshold > 0 {
		dbTracing.SlowQueryThresh = cfg.Database.SlowThreshold
	}
	if err := telemetry.NewDBTracingPlugin(dbTracing, log).Register(db.DB); err != nil {
		return err
	}

	if cfg.Database.AutoMigrate {
		if err := persistence.AutoMigrate(db.DB); err != nil {
			return err
		}
		log.Info("Database schema migrated")
	}

	store, err := newIdempotencyStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	tr, err := newTransport(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer tr.close()

	outboxRepo := event.NewGormOutboxRepository(db.DB)
	pubOpts := []synchro.Option{synchro.WithMaxRetries(cfg.Outbox.MaxRetries)}
	if cfg.Outbox.Enabled {
		pubOpts = append(pubOpts, synchro.WithOutbox(outboxRepo))
	}
	publisher := synchro.NewPublisher(tr.outbound, log.Named("synchro"), pubOpts...)

	dispatcher := event.NewDispatcher(log.Named("dispatcher"))
	catalogStore := persistence.NewGormCatalogStore(db.DB)
	catalogsync.Register(dispatcher,
		catalogsync.NewCatalogApplier(catalogStore, log.Named("catalog")),
		catalogsync.NewTenantCloner(catalogStore, publisher, log.Named("cloner")),
	)
	reference.RegisterAll(dispatcher, db.DB, log.Named("reference"))
	reference.NewCommentApplier(catalogStore, log.Named("comment")).Register(dispatcher)
	log.Info("Event routes registered", zap.Strings("event_types", dispatcher.EventTypes()))

	deduped := event.NewIdempotentHandler(dispatcher, store, log.Named("idempotency"),
		event.WithIdempotencyConfig(shared.IdempotencyConfig{
			Enabled: cfg.Idempotency.Enabled,
			TTL:     cfg.Idempotency.TTL,
		}),
	)

	var processor *event.OutboxProcessor
	if cfg.Outbox.Enabled {
		processor = event.NewOutboxProcessor(outboxRepo, tr.outbound, event.OutboxProcessorConfig{
			BatchSize:        cfg.Outbox.BatchSize,
			PollInterval:     cfg.Outbox.PollInterval,
			CleanupEnabled:   cfg.Outbox.CleanupEnabled,
			CleanupRetention: cfg.Outbox.CleanupRetention,
			CleanupInterval:  time.Hour,
		}, log.Named("outbox"))
		if err := processor.Start(ctx); err != nil {
			return err
		}
	}

	stats := handler.NewStatsHandler()
	handler.WithCounter(stats, "dispatcher", dispatcher.Stats)
	handler.WithCounter(stats, "idempotency", deduped.GetMetrics().Stats)
	if cfg.Outbox.Enabled {
		stats.WithOutbox(outboxRepo)
	}

	consumeErr := make(chan error, 1)
	switch {
	case tr.bus != nil:
		tr.bus.Subscribe(dispatcher)
		consumeErr <- nil
	default:
		consumer := tr.newConsumer(deduped)
		handler.WithCounter(stats, "consumer", consumer.Stats)
		go func() { consumeErr <- consumer.Run(ctx) }()
	}

	srv := newHTTPServer(cfg, log, db, stats, outboxRepo)
	serveErr := make(chan error, 1)
	go func() {
		log.Info("Ops HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case runErr = <-serveErr:
		log.Error("Ops HTTP server failed", zap.Error(runErr))
	}
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Ops HTTP server shutdown failed", zap.Error(err))
	}
	if processor != nil {
		if err := processor.Stop(shutdownCtx); err != nil {
			log.Error("Outbox processor shutdown failed", zap.Error(err))
		}
	}
	if tr.bus == nil {
		select {
		case err := <-consumeErr:
			if err != nil && runErr == nil {
				runErr = err
			}
		case <-shutdownCtx.Done():
			log.Warn("Consumer did not stop before the shutdown timeout")
		}
	}

	log.Info("catalogsync stopped")
	return runErr
}

func newHTTPServer(cfg *config.Config, log *zap.Logger, db *persistence.Database, stats *handler.StatsHandler, outbox handler.OutboxStore) *http.Server {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.NewEngine(log.Named("http"), middleware.TracingConfig{
		ServiceName: cfg.App.Name,
		Enabled:     cfg.Telemetry.Enabled,
	})
	router.NewRouter(engine, router.WithProbes(handler.NewHealthHandler(db))).
		Register(router.RouteFunc(func(rg *gin.RouterGroup) {
			rg.GET("/stats", stats.Get)
		})).
		Register(handler.NewOutboxHandler(outbox)).
		Setup()

	return &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
}
