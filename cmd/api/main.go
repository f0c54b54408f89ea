// Package main is the entry point for the Mural API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/mural/internal/api"
	"github.com/onnwee/mural/internal/canvas"
	"github.com/onnwee/mural/internal/config"
	"github.com/onnwee/mural/internal/db"
	"github.com/onnwee/mural/internal/health"
	"github.com/onnwee/mural/internal/middleware"
	"github.com/onnwee/mural/internal/question"
	"github.com/onnwee/mural/internal/rules"
	"github.com/onnwee/mural/internal/stream"
	"github.com/onnwee/mural/internal/tracing"
)

const serviceName = "mural-api"

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to YAML config file (env vars take precedence)")
	flag.Parse()

	if *help {
		fmt.Println("Mural API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		OTLPEndpoint: cfg.TracingOTLPEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: !cfg.IsProduction(),
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	dbConn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Redis is optional: rate limiting falls back to a per-process window
	// and the readiness probe skips the check.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	registry := prometheus.NewRegistry()
	httpMetrics := middleware.NewMetrics()
	canvasMetrics := canvas.NewMetrics()
	streamMetrics := stream.NewMetrics()
	rulesMetrics := rules.NewMetrics()
	for _, register := range []func(prometheus.Registerer) error{
		httpMetrics.Register,
		canvasMetrics.Register,
		streamMetrics.Register,
		rulesMetrics.Register,
	} {
		if err := register(registry); err != nil {
			logger.Error("failed to register metrics", "error", err)
			os.Exit(1)
		}
	}

	placements := canvas.NewPostgresPlacementRepository(dbConn, canvas.DefaultTaxonomy(), logger)
	questions := question.NewPostgresQuestionRepository(dbConn, logger)
	resolver := canvas.NewResolver(placements)
	broadcaster := stream.NewBroadcaster(streamMetrics)
	engine := rules.NewEngine(placements, questions, rules.Builtin(), logger, rulesMetrics)

	canvasHandlers := api.NewCanvasWSHandlers(placements, questions, resolver, engine, broadcaster, logger, canvasMetrics)
	questionHandlers := api.NewQuestionHandlers(questions, broadcaster, logger)
	dashboardHandlers := api.NewDashboardHandlers(placements, logger)
	heatmapHandlers := api.NewHeatmapHandlers(placements, logger)

	healthConfig := api.HealthHandlersConfig{
		DBChecker:      health.NewDBChecker(dbConn),
		MetricsEnabled: true,
	}
	if redisClient != nil {
		healthConfig.RedisChecker = health.NewRedisChecker(redisClient)
	}
	healthHandlers := api.NewHealthHandlers(healthConfig)

	var rateLimitStore middleware.RateLimitStore
	if redisClient != nil {
		rateLimitStore = middleware.NewRedisRateLimitStore(redisClient).WithMetrics(httpMetrics)
	} else {
		rateLimitStore = middleware.NewInMemoryRateLimitStore()
	}
	createQuestion := middleware.RateLimiter(
		rateLimitStore,
		middleware.DefaultQuestionLimit(),
		middleware.ParticipantKeyFunc(),
		httpMetrics,
	)(http.HandlerFunc(questionHandlers.CreateQuestion))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/api/dashboard", dashboardHandlers.Dashboard)
	mux.HandleFunc("/api/heatmap", heatmapHandlers.Heatmap)
	mux.HandleFunc("/api/questions/pending", questionHandlers.PendingQuestion)
	mux.HandleFunc("/api/questions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			createQuestion.ServeHTTP(w, r)
		default:
			questionHandlers.ListQuestions(w, r)
		}
	})
	mux.HandleFunc("/ws/canvas", canvasHandlers.HandleCanvas)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"mural-api","version":"0.0.1"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	cors := middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxAge:         300,
	})

	// RequestID -> Tracing -> Logging -> HTTPMetrics -> CORS -> routes
	handler := middleware.RequestID(
		middleware.Tracing(serviceName)(
			middleware.Logging(logger)(
				middleware.HTTPMetrics(httpMetrics)(
					cors(mux),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracer provider", "error", err)
	}

	logger.Info("server stopped")
}
