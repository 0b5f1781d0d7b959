package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	fulfillmentapp "github.com/pharmadist/backend/internal/application/fulfillment"
	inventoryapp "github.com/pharmadist/backend/internal/application/inventory"
	orderapp "github.com/pharmadist/backend/internal/application/order"
	"github.com/pharmadist/backend/internal/domain/shared"
	"github.com/pharmadist/backend/internal/infrastructure/auth"
	"github.com/pharmadist/backend/internal/infrastructure/cache"
	"github.com/pharmadist/backend/internal/infrastructure/config"
	"github.com/pharmadist/backend/internal/infrastructure/event"
	"github.com/pharmadist/backend/internal/infrastructure/logger"
	"github.com/pharmadist/backend/internal/infrastructure/persistence"
	"github.com/pharmadist/backend/internal/infrastructure/shipping"
	"github.com/pharmadist/backend/internal/infrastructure/telemetry"
	"github.com/pharmadist/backend/internal/interfaces/http/handler"
	"github.com/pharmadist/backend/internal/interfaces/http/middleware"
	"github.com/pharmadist/backend/internal/interfaces/http/router"
)

// maxRequestBodyBytes caps request bodies; all API payloads are small JSON.
const maxRequestBodyBytes = 1 << 20

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	// Telemetry providers are no-ops unless enabled in config
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	logsProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log = logsProvider.BridgeLogger(log)

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port))

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, logger.NewGormLogger(log, gormlogger.Warn))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log)
	if err := dbTracing.Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	lotRepo := persistence.NewGormLotRepository(db.DB)
	productLotRepo := persistence.NewGormProductLotRepository(db.DB)
	issueNoteRepo := persistence.NewGormIssueNoteRepository(db.DB)
	noteCheckRepo := persistence.NewGormNoteCheckRepository(db.DB)

	// Idempotency store: Redis when configured, in-memory fallback otherwise
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true))
	idempotencyStore, err := storeFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Failed to close idempotency store", zap.Error(err))
		}
	}()

	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewIdempotentHandler(
		event.NewAuditLogger(log), idempotencyStore, log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{
			Enabled: cfg.Idempotency.Enabled,
			TTL:     cfg.Idempotency.TTL,
		}),
	))
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Carrier quotes are skipped entirely when no base URL is configured
	var carrier fulfillmentapp.CarrierQuoter
	if cfg.Carrier.BaseURL != "" {
		carrier = shipping.NewCarrierClient(cfg.Carrier, log)
	}

	jwtService := auth.NewJWTService(cfg.JWT)

	// Application services
	orderService := orderapp.NewOrderService(
		orderRepo, productRepo, userRepo,
		idempotencyStore,
		shared.IdempotencyConfig{Enabled: cfg.Idempotency.Enabled, TTL: cfg.Idempotency.TTL},
		eventBus,
	)
	fulfillmentService := fulfillmentapp.NewFulfillmentService(
		orderRepo, issueNoteRepo, productLotRepo, carrier, eventBus, log)
	noteCheckService := inventoryapp.NewNoteCheckService(noteCheckRepo, productLotRepo, eventBus)
	productLotService := inventoryapp.NewProductLotService(lotRepo, productLotRepo, eventBus)

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	middleware.SetupValidator()

	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(maxRequestBodyBytes))
	engine.Use(middleware.ActorAuth(jwtService))
	engine.Use(middleware.TracingAttributeInjector())

	systemHandler := handler.NewSystemHandler(db.DB)
	engine.GET("/healthz", systemHandler.Health)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewOrderHandler(orderService))
	r.Register(handler.NewIssueNoteHandler(fulfillmentService))
	r.Register(handler.NewNoteCheckHandler(noteCheckService))
	r.Register(handler.NewProductLotHandler(productLotService, cfg.Inventory.ExpiryWarningDays))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(ctx); err != nil {
		log.Error("Failed to stop event bus", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(ctx); err != nil {
		log.Error("Failed to shut down tracing", zap.Error(err))
	}
	if err := logsProvider.Shutdown(ctx); err != nil {
		log.Error("Failed to shut down log export", zap.Error(err))
	}

	log.Info("Server exited")
}
