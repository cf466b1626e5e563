package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/erp/ledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.FromAppConfig(cfg.App, cfg.Log))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting ledger service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Telemetry providers are installed globally; both are no-ops when disabled
	telCfg := telemetry.ConfigFrom(cfg.Telemetry, cfg.App.Name)
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()
	meterProvider, err := telemetry.NewMeterProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()
	ledgerMetrics, err := telemetry.NewLedgerMetrics(meterProvider.Meter(telemetry.MeterName))
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}

	// Database with zap-backed GORM logger and query tracing
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithFullSQL(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFrom(cfg.Telemetry, cfg.Database.Driver), log)
	if err := dbTracing.Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// PostgreSQL schemas are owned by cmd/migrate; sqlite is created in place
	if cfg.Database.Driver == config.DriverSQLite {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to create sqlite schema", zap.Error(err))
		}
	}

	// Posting locks: Redis when configured, in-process otherwise
	lockerFactory := cache.NewPostingLockerFactory(cfg.Redis, cfg.Ledger.PostingLockTTL,
		cache.WithLogger(log.Named("posting_lock")),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	locker, closeLocker, err := lockerFactory.CreateLocker(ctx)
	if err != nil {
		log.Fatal("Failed to create posting locker", zap.Error(err))
	}
	defer func() {
		if err := closeLocker(); err != nil {
			log.Error("Error closing posting locker", zap.Error(err))
		}
	}()

	reportCache := cache.NewReportCache(cfg.Ledger.ReportCacheTTL)

	eventBus := event.NewInMemoryEventBus(log.Named("events"))
	eventBus.Subscribe(appledger.NewReportCacheInvalidator(reportCache))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	repos, scope := persistence.NewLedgerRepositories(db.DB)
	services := appledger.NewServices(appledger.Dependencies{
		Repositories: repos,
		Scope:        scope,
		Locker:       locker,
		Rounding:     cfg.Ledger.Rounding(),
		Currency:     valueobject.Currency(cfg.Ledger.DefaultCurrency),
		Languages:    languages(cfg.Ledger),
		Publisher:    eventBus,
		Cache:        reportCache,
		Recorder:     ledgerMetrics,
		Logger:       log,
	})

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	var limiter *middleware.RateLimiter
	stopLimiter := make(chan struct{})
	defer close(stopLimiter)
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.ClientTTL)
		go limiter.Run(stopLimiter)
	}

	engine, err := router.New(router.EngineConfig{
		Logger:         log,
		ServiceName:    telCfg.ServiceName,
		TracingEnabled: telCfg.Enabled,
		MaxBodyBytes:   cfg.HTTP.MaxBodySize,
		RateLimiter:    limiter,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, router.Handlers{
		Accounts:     handler.NewAccountHandler(services.Accounts, services.Reports),
		Transactions: handler.NewTransactionHandler(services.Transactions, services.Posting),
		Periods:      handler.NewPeriodHandler(services.Periods),
		Reports:      handler.NewReportHandler(services.Reports),
		System:       handler.NewSystemHandler(db, version),
	})
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("Server exited gracefully")
}

// languages puts the configured default language first; it is the fallback
// for account names missing in the requested language
func languages(l config.LedgerConfig) []string {
	def := l.DefaultLanguage
	if def == "" {
		def = ledger.DefaultLanguage
	}
	out := []string{def}
	for _, lang := range l.SupportedLanguages {
		if lang != def {
			out = append(out, lang)
		}
	}
	return out
}
