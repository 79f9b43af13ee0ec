// Package main is the entry point for the API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/refcheck/refcheck/internal/api"
	"github.com/refcheck/refcheck/internal/config"
	"github.com/refcheck/refcheck/internal/corpus"
	"github.com/refcheck/refcheck/internal/credibility"
	"github.com/refcheck/refcheck/internal/db"
	"github.com/refcheck/refcheck/internal/encoder"
	"github.com/refcheck/refcheck/internal/health"
	"github.com/refcheck/refcheck/internal/jobs"
	"github.com/refcheck/refcheck/internal/judge"
	"github.com/refcheck/refcheck/internal/middleware"
	"github.com/refcheck/refcheck/internal/reference"
	"github.com/refcheck/refcheck/internal/reputation"
	"github.com/refcheck/refcheck/internal/scraper"
	"github.com/refcheck/refcheck/internal/tracing"
	"github.com/refcheck/refcheck/internal/webhook"
)

const reputationCacheTTL = 10 * time.Minute

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to optional YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("refcheck API Server")
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
	logger.Info("configuration loaded", "summary", cfg.LogSummary())

	tracingProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "refcheck-api",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: "otlp-http",
		OTLPEndpoint: cfg.TracingEndpoint,
		SamplingRate: cfg.TracingSample,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingProvider.Shutdown(ctx); err != nil {
			logger.Error("tracing shutdown failed", "error", err)
		}
	}()

	ctx := context.Background()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	if err := db.Migrate(ctx, conn); err != nil {
		logger.Error("database migration failed", "error", err)
		os.Exit(1)
	}

	// Redis is optional: without it domain reputation lookups hit
	// Postgres directly.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("failed to close redis client", "error", err)
			}
		}()
	}

	// Repositories
	refs := reference.NewPostgresRepository(conn, logger)
	reports := credibility.NewPostgresReportRepository(conn, logger)
	sources := corpus.NewPostgresSourceRepository(conn, logger)

	var reputationRepo reputation.Repository = reputation.NewPostgresRepository(conn, logger)
	if redisClient != nil {
		reputationRepo = reputation.NewCachedRepository(reputationRepo, redisClient, reputationCacheTTL, logger)
	}

	// Scoring pipeline
	scoringConfig, err := credibility.LoadScoringConfig(cfg.ScoringCalibrationPath)
	if err != nil {
		logger.Warn("scoring calibration unusable, using defaults",
			"path", cfg.ScoringCalibrationPath, "error", err)
	}

	enc, err := encoder.NewOllamaEncoder(cfg.OllamaHost, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	if err != nil {
		logger.Error("failed to create embedding encoder", "error", err)
		os.Exit(1)
	}

	contentJudge, err := judge.NewOllamaJudge(cfg.OllamaHost, cfg.JudgeModel)
	if err != nil {
		logger.Error("failed to create content judge", "error", err)
		os.Exit(1)
	}

	// Judgment failures fall back to conservative defaults at analysis
	// time, so a missing model is a warning, not a startup failure.
	checkCtx, cancelCheck := context.WithTimeout(ctx, 5*time.Second)
	if err := contentJudge.CheckModel(checkCtx); err != nil {
		logger.Warn("judge model unavailable, AI scoring will use defaults",
			"model", cfg.JudgeModel, "error", err)
	}
	cancelCheck()

	corpusIndex := corpus.NewIndex(sources, logger)

	domainScorer := credibility.NewDomainScorer(reputation.NewResolver(reputationRepo, logger))
	metadataScorer := credibility.NewMetadataScorer(scoringConfig.Metadata)
	crossrefScorer := credibility.NewCrossRefScorer(enc, corpusIndex, scoringConfig.CrossRef, logger)
	judgeScorer := credibility.NewJudgeScorer(contentJudge, cfg.JudgeModel, scoringConfig.Judge,
		time.Duration(cfg.JudgeTimeoutSeconds)*time.Second, logger)

	// Metrics
	registry := prometheus.NewRegistry()

	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register HTTP metrics", "error", err)
		os.Exit(1)
	}
	analysisMetrics := credibility.NewMetrics()
	if err := analysisMetrics.Register(registry); err != nil {
		logger.Error("failed to register analysis metrics", "error", err)
		os.Exit(1)
	}
	jobMetrics := jobs.NewMetrics()
	if err := jobMetrics.Register(registry); err != nil {
		logger.Error("failed to register job metrics", "error", err)
		os.Exit(1)
	}

	var notifier credibility.Notifier
	if cfg.WebhookURL != "" {
		notifier = webhook.New(cfg.WebhookURL, webhook.DefaultTimeout, logger)
		logger.Info("analysis webhook enabled", "url", cfg.WebhookURL)
	}

	analyzer := credibility.NewAnalyzer(
		domainScorer, metadataScorer, crossrefScorer, judgeScorer,
		refs, reports, scoringConfig, notifier, analysisMetrics, logger,
	)

	// Sweep picks up references orphaned by crashes or failed inline runs.
	sweep := credibility.NewAnalysisJob(credibility.AnalysisJobConfig{
		Interval:   time.Duration(cfg.SweepIntervalSeconds) * time.Second,
		Logger:     logger,
		JobMetrics: jobMetrics,
	}, analyzer, refs)
	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	if err := sweep.Start(sweepCtx); err != nil {
		logger.Error("failed to start analysis sweep", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer sweep.Stop()

	// HTTP surface
	pageScraper := scraper.New(scraper.DefaultTimeout, logger)
	refHandlers := api.NewReferenceHandlers(refs, reports, analyzer, pageScraper, logger)

	var redisChecker api.HealthChecker
	if redisClient != nil {
		redisChecker = health.NewRedisChecker(redisClient)
	}
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:      health.NewDBChecker(conn),
		OllamaChecker:  health.NewOllamaChecker(cfg.OllamaHost),
		RedisChecker:   redisChecker,
		MetricsEnabled: true,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/references", refHandlers.Collection)
	mux.HandleFunc("/api/references/", refHandlers.Item)
	mux.HandleFunc("/api/reports/", refHandlers.Report)
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"refcheck-api","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	// Apply middleware: Tracing (outer) -> RequestID -> Logging -> HTTPMetrics -> CORS
	var handler http.Handler = mux
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         300,
	})(handler)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Tracing("refcheck-api")(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
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

	logger.Info("server stopped")
}
