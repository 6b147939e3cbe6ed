package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/Azalea224/butler-service-backend/internal/config"
	"github.com/Azalea224/butler-service-backend/internal/database"
	"github.com/Azalea224/butler-service-backend/internal/logger"
	"github.com/Azalea224/butler-service-backend/internal/queue"
	"github.com/Azalea224/butler-service-backend/internal/services/ai"
	"github.com/Azalea224/butler-service-backend/internal/services/butler"
	"github.com/Azalea224/butler-service-backend/internal/telemetry"
	"github.com/Azalea224/butler-service-backend/internal/workers"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// sweepInterval controls how often check-ins that never got a mood label are re-enqueued
const sweepInterval = 15 * time.Minute

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
	debugMode := cfg.WorkerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTELEnabled && cfg.OTELEndpoint != "" {
		tp, err := telemetry.InitTracer(ctx, "butler-worker", cfg.OTELEndpoint)
		if err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = telemetry.Shutdown(shutdownCtx, tp)
			}()
		}
	}

	// Initialize database connection
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	// Initialize repositories
	userRepo := database.NewUserRepository(db)
	taskRepo := database.NewTaskRepository(db)
	contextLogRepo := database.NewContextLogRepository(db)
	chatLogRepo := database.NewChatLogRepository(db)

	// Initialize RabbitMQ queue
	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq", zap.Int("prefetch", cfg.RabbitMQPrefetch))

	aiClient, err := ai.NewConfiguredClient(ctx, ai.NewDefaultRegistry(), cfg.AIProvider,
		ai.ProviderConfig{APIKey: cfg.AIKey(), Model: cfg.AIModel, BaseURL: cfg.AIBaseURL, Logger: zapLogger},
		ai.ClientConfig{Persona: butler.Persona, Logger: zapLogger, DebugMode: debugMode},
	)
	if err != nil {
		zapLogger.Fatal("failed_to_create_ai_client", zap.Error(err))
	}
	if !aiClient.Configured() {
		// Jobs are dead-lettered until a credential is configured
		zapLogger.Warn("ai_credential_missing", zap.String("provider", cfg.AIProvider))
	}
	zapLogger.Info("initialized_ai_client",
		zap.String("provider", cfg.AIProvider),
		zap.String("model", aiClient.Model()),
	)

	butlerService := butler.NewService(butler.Deps{
		Users:  userRepo,
		Tasks:  taskRepo,
		Logs:   contextLogRepo,
		Chats:  chatLogRepo,
		Client: aiClient,
		Logger: zapLogger,
	})
	analyzer := workers.NewMoodAnalyzer(butlerService, jobQueue, zapLogger)
	sweeper := workers.NewPendingMoodSweeper(contextLogRepo, jobQueue, sweepInterval, zapLogger)

	// Start consuming messages
	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming_messages", zap.Error(err))
	}
	zapLogger.Info("worker_started")

	g, gctx := errgroup.WithContext(ctx)

	// Process messages
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case msg, ok := <-msgChan:
				if !ok {
					return errors.New("message channel closed")
				}
				if err := analyzer.ProcessJob(gctx, msg); err != nil {
					zapLogger.Error("failed_to_process_job",
						zap.Error(err),
						zap.String("job_id", msg.GetJob().ID.String()),
						zap.String("job_type", string(msg.GetJob().Type)),
					)
				}
			}
		}
	})

	// Handle errors
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case err, ok := <-errChan:
				if !ok {
					return nil
				}
				zapLogger.Error("queue_error", zap.Error(err))
			}
		}
	})

	g.Go(func() error {
		if err := sweeper.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		zapLogger.Error("worker_stopped_with_error", zap.Error(err))
		return
	}

	zapLogger.Info("worker_stopped")
}
