package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/smart-snippets/internal/config"
	"github.com/benvon/smart-snippets/internal/database"
	"github.com/benvon/smart-snippets/internal/handlers"
	"github.com/benvon/smart-snippets/internal/logger"
	"github.com/benvon/smart-snippets/internal/middleware"
	"github.com/benvon/smart-snippets/internal/queue"
	"github.com/benvon/smart-snippets/internal/services/oidc"
	"github.com/benvon/smart-snippets/internal/snippets"
	"github.com/benvon/smart-snippets/internal/telemetry"
	"github.com/benvon/smart-snippets/internal/workers"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const serviceName = "smart-snippets-api"

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.New(debugMode, cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.String("version", version),
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("auth_mode", cfg.AuthMode),
		zap.Bool("queue_enabled", cfg.QueueEnabled()),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	if cfg.OTELEnabled && cfg.OTELEndpoint == "" {
		zapLogger.Warn("otel_enabled_without_endpoint_using_exporter_default")
	}
	shutdownTracer, err := telemetry.Setup(context.Background(), cfg.OTELEnabled, serviceName, cfg.OTELEndpoint)
	if err != nil {
		zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		shutdownTracer = nil
	}
	if shutdownTracer != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracer(ctx); err != nil {
				zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
			}
		}()
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx)
	migrateCancel()
	if err != nil {
		zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
	}
	zapLogger.Info("connected_to_database")

	redisLimiter, err := middleware.NewRedisRateLimiter(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisLimiter.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// The queue is optional. Without it tag statistics are only marked tainted.
	var jobQueue *queue.RabbitMQQueue
	if cfg.QueueEnabled() {
		jobQueue = connectQueue(cfg.RabbitMQURL, zapLogger)
		defer func() {
			if err := jobQueue.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
	}

	userRepo := database.NewUserRepository(db)
	oidcConfigRepo := database.NewOIDCConfigRepository(db)
	corsConfigRepo := database.NewCorsConfigRepository(db)
	ratelimitConfigRepo := database.NewRatelimitConfigRepository(db)
	tagStatsRepo := database.NewTagStatisticsRepository(db)
	snippetRepo := database.NewSnippetRepository(db)
	snippetRepo.SetLogger(zapLogger)

	var jobs workers.Enqueuer
	if jobQueue != nil {
		jobs = jobQueue
	}
	notifier := workers.NewTagChangeNotifier(tagStatsRepo, jobs, queue.DefaultTagStatisticsDebounce, zapLogger)
	snippetRepo.SetTagChangeHandler(notifier.HandleTagChange)

	snippetService := snippets.NewService(snippetRepo, zapLogger, snippets.WithStatsReader(tagStatsRepo))

	// In secret mode there is no login flow and /auth/oidc/login answers 404
	var verifier middleware.TokenVerifier
	var loginSource handlers.LoginConfigSource
	switch cfg.AuthMode {
	case config.AuthModeSecret:
		tokens, err := middleware.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			zapLogger.Fatal("failed_to_create_token_service", zap.Error(err))
		}
		verifier = tokens
	default:
		oidcProvider := oidc.NewProvider(oidcConfigRepo)
		verifier = oidc.NewProviderVerifier(oidcProvider, oidc.NewJWKSManager(), cfg.OIDCProvider)
		loginSource = oidcProvider
	}

	authHandler := handlers.NewAuthHandler(loginSource, cfg.OIDCProvider, zapLogger)
	snippetHandler := handlers.NewSnippetHandler(snippetService, zapLogger)
	healthChecker := handlers.NewHealthChecker(version).
		AddCheck("database", db.PingContext).
		AddCheck("redis", redisLimiter.Ping)
	if jobQueue != nil {
		healthChecker.AddCheck("queue", jobQueue.HealthCheck)
	}

	r := mux.NewRouter()

	// gorilla/mux runs middleware in registration order, outermost first
	if cfg.OTELEnabled && shutdownTracer != nil {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	corsReloader := middleware.NewCORSReloader(corsConfigRepo, cfg.FrontendURL, zapLogger, time.Minute)
	r.Use(corsReloader.Middleware())
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	// Rate limiting is applied per route group, not globally
	rateLimitReloader, err := middleware.NewRateLimitReloader(redisLimiter, ratelimitConfigRepo, cfg.RateLimitDefault, zapLogger, time.Minute)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_reloader", zap.Error(err))
	}
	rateLimitMW := rateLimitReloader.Middleware()
	authMW := middleware.Auth(verifier, userRepo, zapLogger)

	healthChecker.RegisterRoutes(r)
	handlers.NewOpenAPIHandler().RegisterRoutes(r)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	authRouter := apiRouter.PathPrefix("/auth").Subrouter()

	loginRouter := authRouter.PathPrefix("/oidc").Subrouter()
	loginRouter.Use(rateLimitMW)
	authHandler.RegisterLoginRoutes(loginRouter)

	protectedAuthRouter := authRouter.PathPrefix("").Subrouter()
	protectedAuthRouter.Use(authMW)
	protectedAuthRouter.Use(rateLimitMW)
	authHandler.RegisterRoutes(protectedAuthRouter)

	snippetsRouter := apiRouter.PathPrefix("/snippets").Subrouter()
	snippetsRouter.Use(authMW)
	snippetsRouter.Use(rateLimitMW)
	snippetHandler.RegisterRoutes(snippetsRouter)

	// Preflight requests reach here after the CORS middleware has answered
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go corsReloader.Start(bgCtx)
	go rateLimitReloader.Start(bgCtx)

	if jobQueue != nil {
		const dlqInterval, dlqRetention = time.Hour, 24 * time.Hour
		gc := queue.NewGarbageCollector(jobQueue, dlqInterval, dlqRetention, zapLogger)
		go func() {
			if err := gc.Start(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_garbage_collector",
			zap.Duration("interval", dlqInterval),
			zap.Duration("retention", dlqRetention),
		)
	}

	go func() {
		zapLogger.Info("server_listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectQueue dials RabbitMQ with exponential backoff to ride out broker
// startup. It exits the process once the retries are spent.
func connectQueue(url string, zapLogger *zap.Logger) *queue.RabbitMQQueue {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		q, err := queue.NewRabbitMQQueue(url, zapLogger)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return q
		}
		lastErr = err

		delay := min(initialDelay*time.Duration(1<<uint(attempt)), 30*time.Second)
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
		time.Sleep(delay)
	}

	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.Error(lastErr),
	)
	return nil
}
