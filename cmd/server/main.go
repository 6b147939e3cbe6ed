package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Azalea224/butler-service-backend/internal/config"
	"github.com/Azalea224/butler-service-backend/internal/database"
	"github.com/Azalea224/butler-service-backend/internal/handlers"
	"github.com/Azalea224/butler-service-backend/internal/logger"
	"github.com/Azalea224/butler-service-backend/internal/middleware"
	"github.com/Azalea224/butler-service-backend/internal/queue"
	"github.com/Azalea224/butler-service-backend/internal/services/ai"
	"github.com/Azalea224/butler-service-backend/internal/services/auth"
	"github.com/Azalea224/butler-service-backend/internal/services/butler"
	"github.com/Azalea224/butler-service-backend/internal/telemetry"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const serviceName = "butler-service"

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override debug mode if flag is set
	debugMode := cfg.ServerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry if enabled
	tracingEnabled := false
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(ctx, serviceName, cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracingEnabled = true
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Connect to database and apply the schema
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	if err := db.Migrate(ctx); err != nil {
		zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
	}
	zapLogger.Info("connected_to_database")

	// Redis backs the rate limiters; without it each replica limits on its own
	redisClient, err := middleware.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		zapLogger.Warn("redis_unavailable_using_in_memory_rate_limits", zap.Error(err))
		redisClient = nil
	} else {
		zapLogger.Info("connected_to_redis")
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
	}

	jobQueue := connectQueue(cfg.RabbitMQURL, zapLogger)
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	// Initialize repositories
	userRepo := database.NewUserRepository(db)
	taskRepo := database.NewTaskRepository(db)
	contextLogRepo := database.NewContextLogRepository(db)
	chatLogRepo := database.NewChatLogRepository(db)
	corsConfigRepo := database.NewCorsConfigRepository(db)
	ratelimitConfigRepo := database.NewRatelimitConfigRepository(db)

	// Initialize services
	aiClient, err := ai.NewConfiguredClient(ctx, ai.NewDefaultRegistry(), cfg.AIProvider,
		ai.ProviderConfig{APIKey: cfg.AIKey(), Model: cfg.AIModel, BaseURL: cfg.AIBaseURL, Logger: zapLogger},
		ai.ClientConfig{Persona: butler.Persona, Logger: zapLogger, DebugMode: debugMode},
	)
	if err != nil {
		zapLogger.Fatal("failed_to_create_ai_client", zap.Error(err))
	}
	if !aiClient.Configured() {
		zapLogger.Warn("ai_credential_missing_model_routes_disabled", zap.String("provider", cfg.AIProvider))
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		zapLogger.Fatal("failed_to_create_token_issuer", zap.Error(err))
	}
	authService := auth.NewService(userRepo, tokens, zapLogger)
	butlerService := butler.NewService(butler.Deps{
		Users:  userRepo,
		Tasks:  taskRepo,
		Logs:   contextLogRepo,
		Chats:  chatLogRepo,
		Client: aiClient,
		Jobs:   jobQueue,
		Logger: zapLogger,
	})

	// Rate limiting: per IP on the whole API, per user on routes that call the model
	ipStore, err := middleware.NewLimiterStore(redisClient, "ip")
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_store", zap.Error(err))
	}
	aiStore, err := middleware.NewLimiterStore(redisClient, "ai")
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_store", zap.Error(err))
	}
	rateLimitReloader := middleware.NewRateLimitReloader(ipStore, ratelimitConfigRepo, middleware.DefaultIPRate, zapLogger, time.Minute)
	aiRateLimit, err := middleware.UserRateLimit(aiStore, cfg.AIRateLimit, zapLogger)
	if err != nil {
		zapLogger.Fatal("invalid_ai_rate_limit", zap.Error(err))
	}
	corsReloader := middleware.NewCORSReloader(corsConfigRepo, cfg.FrontendURL, zapLogger, time.Minute)
	rateLimitReloader.Load(ctx)
	corsReloader.Load(ctx)
	activity := middleware.NewActivityTracker(userRepo, middleware.DefaultActivityInterval, zapLogger)

	healthChecker := handlers.NewHealthChecker().
		AddCheck("database", db.PingContext).
		AddCheck("queue", jobQueue.HealthCheck)
	if redisClient != nil {
		healthChecker.AddCheck("redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	openAPIHandler, err := handlers.NewOpenAPIHandler()
	if err != nil {
		zapLogger.Fatal("failed_to_load_openapi_document", zap.Error(err))
	}

	r := newRouter(routerDeps{
		cfg:           cfg,
		logger:        zapLogger,
		tracing:       tracingEnabled,
		cors:          corsReloader,
		ipRateLimit:   rateLimitReloader.Middleware(),
		aiRateLimit:   aiRateLimit,
		authenticate:  middleware.Auth(authService, zapLogger),
		activity:      activity.Middleware,
		health:        healthChecker,
		openAPI:       openAPIHandler,
		authHandler:   handlers.NewAuthHandler(authService, zapLogger),
		taskHandler:   handlers.NewTaskHandler(taskRepo, butlerService, zapLogger),
		butlerHandler: handlers.NewButlerHandler(butlerService, zapLogger),
		chatHandler:   handlers.NewChatHandler(butlerService, zapLogger),
	})

	// Setup server. WriteTimeout leaves room for the model route timeout.
	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   middleware.ModelRequestTimeout + 15*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	// CORS and rate limit hot-reload loops, activity pruning, DLQ garbage collection
	go corsReloader.Start(ctx)
	go rateLimitReloader.Start(ctx)
	go activity.Start(ctx)
	if dlqPurger, ok := jobQueue.(queue.DLQPurger); ok {
		dlqGC := queue.NewGarbageCollector(dlqPurger, time.Hour, 24*time.Hour, zapLogger)
		go func() {
			if err := dlqGC.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_garbage_collector",
			zap.Duration("interval", time.Hour),
			zap.Duration("retention", 24*time.Hour),
		)
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	zapLogger.Info("server_shutting_down")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectQueue connects to RabbitMQ, retrying with exponential backoff to ride out broker startup
func connectQueue(url string, zapLogger *zap.Logger) queue.JobQueue {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err := queue.NewRabbitMQQueue(url, zapLogger)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return jobQueue
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.Error(lastErr),
	)
	return nil
}

type routerDeps struct {
	cfg           *config.Config
	logger        *zap.Logger
	tracing       bool
	cors          *middleware.CORSReloader
	ipRateLimit   mux.MiddlewareFunc
	aiRateLimit   mux.MiddlewareFunc
	authenticate  mux.MiddlewareFunc
	activity      mux.MiddlewareFunc
	health        *handlers.HealthChecker
	openAPI       *handlers.OpenAPIHandler
	authHandler   *handlers.AuthHandler
	taskHandler   *handlers.TaskHandler
	butlerHandler *handlers.ButlerHandler
	chatHandler   *handlers.ChatHandler
}

func newRouter(d routerDeps) *mux.Router {
	r := mux.NewRouter()

	// gorilla/mux runs middleware in registration order: the first registered is outermost
	if d.tracing {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.SecurityHeaders(d.cfg.EnableHSTS))
	r.Use(d.cors.Middleware())
	r.Use(middleware.Recover(d.logger))
	r.Use(middleware.Logging(d.logger))
	r.Use(middleware.Audit(d.logger))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize, d.logger))
	r.Use(middleware.ContentType(d.logger))

	// Public routes (no rate limiting for health checks)
	r.HandleFunc("/healthz", d.health.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/health", d.health.HealthCheck).Methods(http.MethodGet) // Legacy endpoint
	r.HandleFunc("/version", handlers.VersionInfo).Methods(http.MethodGet)
	r.HandleFunc("/api/health", handlers.ServiceInfo).Methods(http.MethodGet)
	d.openAPI.RegisterRoutes(r)

	// API v1 routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(d.ipRateLimit)

	// protected returns a subrouter for prefix behind bearer auth. Model routes get the
	// per-user AI limit and a longer timeout. Model subrouters are registered before the
	// plain ones sharing their prefix so that their routes are matched first.
	protected := func(prefix string, model bool) *mux.Router {
		sub := api.PathPrefix(prefix).Subrouter()
		sub.Use(d.authenticate, d.activity)
		if model {
			sub.Use(d.aiRateLimit, middleware.Timeout(middleware.ModelRequestTimeout))
		} else {
			sub.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
		}
		return sub
	}

	authPublic := api.PathPrefix("/auth").Subrouter()
	authPublic.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	d.authHandler.RegisterPublicRoutes(authPublic)
	d.authHandler.RegisterRoutes(protected("/auth", false))

	d.taskHandler.RegisterParseRoute(protected("/tasks", true))
	d.taskHandler.RegisterRoutes(protected("/tasks", false))

	d.butlerHandler.RegisterModelRoutes(protected("/butler", true))
	d.butlerHandler.RegisterRoutes(protected("/butler", false))

	d.chatHandler.RegisterModelRoutes(protected("/chat", true))
	d.chatHandler.RegisterRoutes(protected("/chat", false))

	// Catch-all OPTIONS handler so preflight requests reach the CORS middleware
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}
