package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/insight-coach/api/openapi"
	"github.com/benvon/insight-coach/internal/backends"
	"github.com/benvon/insight-coach/internal/config"
	"github.com/benvon/insight-coach/internal/handlers"
	"github.com/benvon/insight-coach/internal/logger"
	"github.com/benvon/insight-coach/internal/middleware"
	"github.com/benvon/insight-coach/internal/queue"
	"github.com/benvon/insight-coach/internal/services/ai"
	"github.com/benvon/insight-coach/internal/services/insight"
	"github.com/benvon/insight-coach/internal/telemetry"
	"github.com/benvon/insight-coach/internal/workers"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 30 * time.Second
	dlqInterval     = time.Hour
	dlqRetention    = 24 * time.Hour
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	envFile := flag.String("env-file", ".env", "Optional file of KEY=value pairs loaded before the environment")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		log.Fatalf("Failed to load env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.New(cfg.IsProduction(), debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("environment", cfg.Environment),
		zap.String("server_port", cfg.ServerPort),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
		zap.String("rate_limit", cfg.RateLimit),
		zap.String("rate_limit_backend", cfg.RateLimitBackend),
		zap.String("memory_backend", cfg.MemoryBackend),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	tracerProvider := telemetry.Setup(rootCtx, cfg.OTELEnabled, telemetry.ServiceServer, cfg.OTELEndpoint, zapLogger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(ctx, tracerProvider); err != nil {
			zapLogger.Error("failed_to_shutdown_tracer", zap.Error(err))
		}
	}()

	infra, err := backends.Open(rootCtx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_open_backends", zap.Error(err))
	}
	defer func() {
		if err := infra.Close(); err != nil {
			zapLogger.Warn("failed_to_close_backends", zap.Error(err))
		}
	}()

	limiter, err := infra.Limiter(rootCtx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	executor := workers.NewAsyncExecutor(cfg.BackgroundConcurrency, workers.DefaultTaskTimeout, zapLogger)

	healthOpts := []handlers.HealthOption{}
	if infra.DB != nil {
		healthOpts = append(healthOpts, handlers.WithDatabase(infra.DB))
	}
	if infra.Redis != nil {
		healthOpts = append(healthOpts, handlers.WithRedis(infra.Redis))
	}

	// Queue-backed memory updates when RabbitMQ is configured, in-process otherwise
	var updater workers.UpdateScheduler = workers.NewMemoryUpdater(infra.Memory, executor, zapLogger)
	if cfg.RabbitMQURL != "" {
		jobQueue, err := backends.ConnectQueue(rootCtx, cfg.RabbitMQURL, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
		}
		defer func() {
			if err := jobQueue.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
		updater = workers.NewQueuedMemoryUpdater(jobQueue, executor, zapLogger)
		healthOpts = append(healthOpts, handlers.WithQueue(jobQueue))

		dlqGC := queue.NewGarbageCollector(jobQueue, dlqInterval, dlqRetention, zapLogger)
		go func() {
			if err := dlqGC.Start(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
	}

	completer, err := createCompleter(cfg, zapLogger, debugMode)
	if err != nil {
		// Shortcut replies keep working; completions answer with a configuration error.
		zapLogger.Warn("failed_to_create_ai_provider_completions_disabled", zap.Error(err))
		completer = nil
	}

	service := insight.NewService(insight.Config{
		Limiter:   limiter,
		Memory:    infra.Memory,
		Updater:   updater,
		Completer: completer,
		Location:  cfg.Location(),
		Logger:    zapLogger,
		DebugMode: debugMode && !cfg.IsProduction(),
	})

	insightHandler := handlers.NewInsightHandler(service, zapLogger)
	healthChecker := handlers.NewHealthChecker(healthOpts...)

	r := mux.NewRouter()

	// Middleware registered first wraps outermost
	if tracerProvider != nil {
		r.Use(otelmux.Middleware(telemetry.ServiceServer))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(cfg.CompletionTimeout + 10*time.Second))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", handlers.VersionInfo).Methods("GET")
	handlers.NewOpenAPIHandler(openapi.Spec).RegisterRoutes(r)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	insightHandler.RegisterRoutes(apiRouter)

	// Preflight requests reach the CORS middleware through this route
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.CompletionTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}
	// In-flight memory updates finish before their stores close
	if err := executor.Shutdown(ctx); err != nil {
		zapLogger.Warn("background_tasks_abandoned", zap.Error(err))
	}
	rootCancel()

	zapLogger.Info("server_exited")
}

// createCompleter builds the configured completion provider
func createCompleter(cfg *config.Config, logger *zap.Logger, debugMode bool) (ai.Completer, error) {
	apiKey := cfg.OpenAIKey
	if cfg.AIProvider == "gemini" {
		apiKey = cfg.GeminiKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key for provider %q not configured", cfg.AIProvider)
	}

	return ai.NewDefaultRegistry().GetProvider(cfg.AIProvider, ai.ProviderConfig{
		APIKey:    apiKey,
		Model:     cfg.AIModel,
		BaseURL:   cfg.AIBaseURL,
		Timeout:   cfg.CompletionTimeout,
		Logger:    logger,
		DebugMode: debugMode,
	})
}
