package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/taskping/taskping/internal/config"
	"github.com/taskping/taskping/internal/database"
	"github.com/taskping/taskping/internal/geofence"
	"github.com/taskping/taskping/internal/handlers"
	"github.com/taskping/taskping/internal/logger"
	"github.com/taskping/taskping/internal/middleware"
	"github.com/taskping/taskping/internal/notify"
	"github.com/taskping/taskping/internal/queue"
	"github.com/taskping/taskping/internal/scheduler"
	"github.com/taskping/taskping/internal/services/oidc"
	"github.com/taskping/taskping/internal/services/parser"
	"github.com/taskping/taskping/internal/telemetry"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for parser API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("parser_model", cfg.ParserModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// OpenTelemetry tracing
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "taskping-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Database
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

	// Redis for rate limiting
	redisClient, err := middleware.NewRedisClient(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// RabbitMQ with retry; brokers routinely come up after the app in
	// container environments.
	jobQueue := connectQueue(cfg.RabbitMQURL, zapLogger)
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	// Repositories
	taskRepo := database.NewTaskRepository(db)
	userRepo := database.NewUserRepository(db)
	settingsRepo := database.NewSettingsRepository(db)
	subRepo := database.NewSubscriptionRepository(db)

	// Auth
	keyCache := oidc.NewKeyCache(cfg.JWKSURL, oidc.DefaultKeyTTL)
	verifier := oidc.NewVerifier(keyCache, cfg.OIDCIssuer, cfg.OIDCAudience)

	// Alert delivery: background alerts go through the queue to the push
	// worker, foreground toasts go to connected clients.
	pushChannel := notify.NewQueueChannel(jobQueue, 10*time.Minute)
	toastChannel := notify.NewToastChannel()
	gateway := notify.NewAlertGateway(settingsRepo, pushChannel, toastChannel, zapLogger)

	// Reminder scheduler
	schedCfg := scheduler.DefaultConfig()
	schedCfg.PollInterval = cfg.PollInterval
	schedCfg.DedupRetention = cfg.DedupRetention
	schedCfg.PreAlertLead = cfg.PreAlertLead
	schedCfg.FollowUpDelay = cfg.FollowUpDelay
	schedCfg.FollowUpWindow = cfg.FollowUpWindow
	schedCfg.DigestHour = cfg.DigestHour
	sched := scheduler.New(schedCfg, scheduler.SourceFunc(taskRepo.ListLive), gateway, zapLogger,
		scheduler.WithSettings(settingsRepo))

	// Geofence monitor, kept in sync with the live geofenced task set
	monitor := geofence.NewMonitor(geofence.Config{
		StalenessMax:   cfg.GeoStalenessMax,
		AcquireTimeout: cfg.GeoAcquireTimeout,
	}, gateway, zapLogger)

	// Task parser: LLM first, heuristics when the API is unavailable
	taskParser := buildParser(cfg, zapLogger, debugMode)

	// Action routing from notification taps back onto the task store
	actionRouter := notify.NewRouter(taskRepo, notify.DefaultSuppressWindow, zapLogger)

	// Handlers
	healthChecker := handlers.NewHealthChecker(db, redisClient, jobQueue)
	taskHandler := handlers.NewTaskHandler(taskRepo)
	parseHandler := handlers.NewParseHandler(taskParser, zapLogger)
	positionHandler := handlers.NewPositionHandler(monitor, zapLogger)
	actionHandler := handlers.NewActionHandler(actionRouter, zapLogger)
	pushHandler := handlers.NewPushHandler(subRepo, gateway, zapLogger)
	feedHandler := handlers.NewFeedHandler(toastChannel, zapLogger)
	settingsHandler := handlers.NewSettingsHandler(settingsRepo)

	// Router and middleware
	r := mux.NewRouter()
	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware("taskping-api"))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORSFromEnv(cfg.FrontendURL))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	rateLimitMW, err := middleware.RateLimit(redisClient, middleware.DefaultRateLimit)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	// Public routes
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	openAPIHandler := handlers.NewOpenAPIHandler(filepath.Join("api", "openapi.yaml"))
	openAPIHandler.RegisterRoutes(r)

	// Protected API routes
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	authMW := middleware.Auth(verifier, userRepo, zapLogger)

	protect := func(prefix string) *mux.Router {
		sub := apiRouter.PathPrefix(prefix).Subrouter()
		sub.Use(authMW)
		sub.Use(rateLimitMW)
		return sub
	}

	parseHandler.RegisterRoutes(protect("/tasks/parse"))
	taskHandler.RegisterRoutes(protect("/tasks"))
	positionHandler.RegisterRoutes(protect("/positions"))
	actionHandler.RegisterRoutes(protect("/notifications/actions"))
	notificationsRouter := protect("/notifications")
	pushHandler.RegisterRoutes(notificationsRouter)
	feedHandler.RegisterRoutes(notificationsRouter)
	settingsHandler.RegisterRoutes(protect("/settings"))

	// Background loops
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	sched.Start(bgCtx)
	zapLogger.Info("reminder_scheduler_started",
		zap.Duration("poll_interval", schedCfg.PollInterval),
		zap.Int("digest_hour", schedCfg.DigestHour),
	)

	go reconcileGeofences(bgCtx, monitor, taskRepo, cfg.PollInterval, zapLogger)

	if dlqPurger, ok := jobQueue.(queue.DLQPurger); ok {
		dlqGC := queue.NewGarbageCollector(dlqPurger, 1*time.Hour, 24*time.Hour, zapLogger)
		go func() {
			if err := dlqGC.Start(bgCtx); err != nil && err != context.Canceled {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
	}

	// HTTP server
	// WriteTimeout stays off so the alert feed can hold its stream open;
	// regular requests are bounded by the timeout middleware instead.
	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	bgCancel()
	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectQueue dials RabbitMQ with capped exponential backoff.
func connectQueue(amqpURL string, zapLogger *zap.Logger) queue.JobQueue {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err := queue.NewRabbitMQQueue(amqpURL)
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

// buildParser wires the LLM parser with a heuristic fallback. Without an
// API key the heuristic parser runs alone.
func buildParser(cfg *config.Config, zapLogger *zap.Logger, debugMode bool) parser.Provider {
	heuristic := parser.NewHeuristicParser()
	if cfg.OpenAIKey == "" {
		zapLogger.Warn("parser_api_key_not_configured_using_heuristics_only")
		return heuristic
	}

	llm := parser.NewOpenAIParserWithLogger(cfg.OpenAIKey, cfg.ParserBaseURL, cfg.ParserModel, zapLogger, debugMode)
	return parser.NewFallbackParser(llm, heuristic, zapLogger)
}

// reconcileGeofences keeps the monitor's watch state in step with the
// live geofenced task set.
func reconcileGeofences(ctx context.Context, monitor *geofence.Monitor, taskRepo database.TaskRepositoryInterface, interval time.Duration, zapLogger *zap.Logger) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tasks, err := taskRepo.ListLive(ctx)
			if err != nil {
				zapLogger.Warn("geofence_reconcile_failed", zap.Error(err))
				continue
			}
			monitor.Reconcile(tasks)
		}
	}
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"version":"1.0.0","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339))
}
