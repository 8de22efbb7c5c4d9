package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	salesapp "github.com/salescrm/backend/internal/application/sales"
	visitapp "github.com/salescrm/backend/internal/application/visit"
	"github.com/salescrm/backend/internal/domain/shared"
	"github.com/salescrm/backend/internal/infrastructure/auth"
	"github.com/salescrm/backend/internal/infrastructure/cache"
	"github.com/salescrm/backend/internal/infrastructure/config"
	"github.com/salescrm/backend/internal/infrastructure/event"
	"github.com/salescrm/backend/internal/infrastructure/logger"
	"github.com/salescrm/backend/internal/infrastructure/orders"
	"github.com/salescrm/backend/internal/infrastructure/persistence"
	"github.com/salescrm/backend/internal/infrastructure/scheduler"
	"github.com/salescrm/backend/internal/infrastructure/storage"
	"github.com/salescrm/backend/internal/infrastructure/telemetry"
	"github.com/salescrm/backend/internal/interfaces/http/handler"
	"github.com/salescrm/backend/internal/interfaces/http/middleware"
	"github.com/salescrm/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const instrumentationName = "github.com/salescrm/backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx := context.Background()

	// Bootstrap logger until the OTLP log bridge is up
	bootLog := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})

	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}

	log := logger.New(
		logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output},
		logProvider.ZapCore(logger.ParseLevel(cfg.Log.Level)),
	)
	defer func() { _ = log.Sync() }()

	log.Info("Starting sales service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Strings("countries", cfg.Countries.Codes),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	prof := cfg.Telemetry.Profiling
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:              prof.Enabled,
		ServerAddress:        prof.ServerAddress,
		ApplicationName:      prof.ApplicationName,
		BasicAuthUser:        prof.BasicAuthUser,
		BasicAuthPassword:    prof.BasicAuthPassword,
		ProfileTypes:         prof.ProfileTypes,
		MutexProfileFraction: prof.MutexProfileFraction,
		BlockProfileRate:     prof.BlockProfileRate,
		Tags:                 map[string]string{"env": cfg.App.Env, "version": cfg.App.Version},
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && prof.SpanProfiles {
		tracerProvider.EnableSpanProfiles()
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	meter := meterProvider.Meter(instrumentationName)

	businessMetrics, err := telemetry.NewBusinessMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}

	// Database: one pool, one schema per country
	var plugins []gorm.Plugin
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		plugins = append(plugins, telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBName:          cfg.Database.DBName,
		}))
	}
	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh, cfg.Telemetry.DBLogFullSQL)

	db, err := persistence.NewDatabase(&cfg.Database, gormLog, plugins...)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if _, err := telemetry.RegisterPoolMetrics(meter, db.SQLDB()); err != nil {
		log.Warn("Failed to register connection pool metrics", zap.Error(err))
	}

	countries, err := persistence.NewCountryRouter(db.Scoped, cfg.Countries.Codes, cfg.Countries.Default)
	if err != nil {
		log.Fatal("Failed to open country schemas", zap.Error(err))
	}
	if cfg.Countries.EnsureSchemas {
		if err := countries.EnsureSchemas(ctx); err != nil {
			log.Fatal("Failed to create country schemas", zap.Error(err))
		}
	}
	log.Info("Database connected", zap.Strings("schemas", countries.Countries()))

	// Collaborators
	ordersClient, err := orders.NewClient(cfg.Orders, cfg.Countries.Header)
	if err != nil {
		log.Fatal("Failed to configure orders client", zap.Error(err))
	}

	photoStore, err := storage.New(ctx, cfg.Storage, cfg.Countries.Default, log)
	if err != nil {
		log.Fatal("Failed to configure photo storage", zap.Error(err))
	}

	idempotencyStore, redisStore := cache.NewIdempotencyStore(ctx, cfg.Redis, log)
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Application services
	planService := salesapp.NewPlanService(
		persistence.NewGormPlanRepository(countries),
		persistence.NewGormProgressStore(countries),
		ordersClient,
		log,
		salesapp.WithMetrics(businessMetrics),
		salesapp.WithBatchConcurrency(cfg.Scheduler.MaxConcurrentJobs),
	)
	visitService := visitapp.NewVisitService(
		persistence.NewGormVisitRepository(countries),
		photoStore,
		cfg.Countries.Default,
		log,
	)

	// Push events
	dispatcher := event.NewDispatcher(log)
	recalcHandler := salesapp.NewPlanRecalculationHandler(planService, log)
	dispatcher.Subscribe(recalcHandler)
	pushDispatcher := event.NewIdempotentDispatcher(dispatcher, idempotencyStore, log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{
			Enabled: cfg.PubSub.DedupEnabled,
			TTL:     cfg.PubSub.DedupTTL,
		}),
	)
	log.Info("Event handlers registered", zap.Strings("events", recalcHandler.EventTypes()))

	// Daily recalculation
	if cfg.Scheduler.Enabled {
		jobScheduler := scheduler.NewScheduler(scheduler.Config{
			MaxConcurrentJobs: len(cfg.Countries.Codes),
			JobTimeout:        cfg.Scheduler.JobTimeout,
			RetryAttempts:     cfg.Scheduler.RetryAttempts,
			RetryDelay:        cfg.Scheduler.RetryDelay,
		}, scheduler.ExecutorFunc(func(ctx context.Context, job *scheduler.Job) error {
			ctx = salesapp.WithTrigger(ctx, salesapp.TriggerScheduler)
			_, err := planService.RecalculateActive(ctx, job.Country, job.Date)
			return err
		}), log)
		if err := jobScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer func() {
			if err := jobScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping scheduler", zap.Error(err))
			}
		}()

		trigger := scheduler.NewCronTrigger(scheduler.CronTriggerConfig{
			RunHour:   cfg.Scheduler.RunHour,
			RunMinute: cfg.Scheduler.RunMinute,
		}, jobScheduler, countries, log)
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start cron trigger", zap.Error(err))
		}
		defer func() {
			if err := trigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping cron trigger", zap.Error(err))
			}
		}()
		log.Info("Daily recalculation scheduled",
			zap.Int("run_hour", cfg.Scheduler.RunHour),
			zap.Int("run_minute", cfg.Scheduler.RunMinute),
		)
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine, err := router.NewEngine(router.EngineConfig{
		Logger: log,
		HTTP:   cfg.HTTP,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tracerProvider.IsEnabled(),
		},
		Security: middleware.DefaultSecurityConfig(),
		Meter:    meter,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	versioned := []gin.HandlerFunc{middleware.Country(middleware.CountryConfig{
		Header:    cfg.Countries.Header,
		Default:   cfg.Countries.Default,
		Supported: cfg.Countries.Codes,
	})}
	if cfg.Auth.Enabled {
		versioned = append(versioned, middleware.JWTAuthMiddlewareWithConfig(
			middleware.DefaultJWTConfig(auth.NewJWTService(cfg.Auth), log),
		))
		log.Info("Bearer token verification enabled", zap.String("issuer", cfg.Auth.Issuer))
	}
	if profiler.IsEnabled() {
		versioned = append(versioned, middleware.Profiling())
	}
	if cfg.HTTP.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst, 10*time.Minute)
		defer limiter.Stop()
		versioned = append(versioned, middleware.RateLimit(limiter))
		log.Info("Rate limiting enabled",
			zap.Float64("rps", cfg.HTTP.RateLimitRPS),
			zap.Int("burst", cfg.HTTP.RateLimitBurst),
		)
	}

	var healthOpts []handler.HealthOption
	if redisStore != nil {
		healthOpts = append(healthOpts, handler.WithRedisCheck(redisStore))
	}
	if cfg.Storage.Provider != "memory" {
		healthOpts = append(healthOpts, handler.WithStorageCheck(photoStore))
	}
	healthHandler := handler.NewHealthHandler(cfg.App.Name, countries, log, healthOpts...)
	pushHandler := handler.NewPushHandler(pushDispatcher, cfg.Countries.Default, cfg.PubSub, log,
		handler.WithPushMetrics(businessMetrics),
	)

	r := router.NewRouter(engine, router.WithVersionMiddleware(versioned...))
	r.RegisterRoot(router.NewDomainGroup("ops", "").
		GET("/health", healthHandler.Health).
		GET("/ready", healthHandler.Ready).
		POST("/pubsub", pushHandler.Receive))
	r.Register(handler.NewPlanHandler(planService))
	r.Register(handler.NewVisitHandler(visitService))
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
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer provider shutdown failed", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Meter provider shutdown failed", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Profiler stop failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
	// last, so the lines above are still exported
	_ = logProvider.Shutdown(shutdownCtx)
}
