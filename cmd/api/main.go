package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/fieldservice-scheduler/cmd/mainconfig"
	"github.com/wolfman30/fieldservice-scheduler/internal/api/router"
	"github.com/wolfman30/fieldservice-scheduler/internal/app/bootstrap"
	"github.com/wolfman30/fieldservice-scheduler/internal/audit"
	appconfig "github.com/wolfman30/fieldservice-scheduler/internal/config"
	httpmiddleware "github.com/wolfman30/fieldservice-scheduler/internal/http/middleware"
	"github.com/wolfman30/fieldservice-scheduler/internal/messaging"
	"github.com/wolfman30/fieldservice-scheduler/internal/observability/metrics"
	"github.com/wolfman30/fieldservice-scheduler/internal/outreach"
	"github.com/wolfman30/fieldservice-scheduler/internal/records"
	"github.com/wolfman30/fieldservice-scheduler/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting fieldservice-scheduler API server", "env", cfg.Env, "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := bootstrap.ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}
	store := buildStore(pool, logger)

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = &loaded
	}

	llm, closeLLM, err := bootstrap.BuildLLMClient(ctx, cfg, awsCfg, logger)
	if err != nil {
		logger.Error("failed to build llm client", "error", err)
		os.Exit(1)
	}
	defer closeLLM()

	var auditStore *audit.Store
	if cfg.DatabaseURL != "" {
		db, err := bootstrap.OpenAuditDB(cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open audit database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		auditStore = audit.NewStore(db)
	}

	metricsHandler, schedulerMetrics := setupMetrics()

	engine := bootstrap.BuildEngine(cfg, bootstrap.SchedulerDeps{
		Store:    store,
		Redis:    redisClient,
		LLM:      llm,
		Audit:    auditStore,
		Bookings: bootstrap.BuildBookingNotifier(cfg, awsCfg, logger),
		Metrics:  schedulerMetrics,
	}, logger)

	sweeper := outreach.NewSweeper(store, bootstrap.BuildTemplateSender(cfg, logger), cfg.OutreachInterval, schedulerMetrics, logger)

	limiter := httpmiddleware.NewRateLimiter(cfg.WebhookRateLimit, cfg.WebhookRateBurst)
	go evictIdleVisitors(ctx, limiter, logger)

	r := router.New(&router.Config{
		Logger:           logger,
		MessagingHandler: messaging.NewHandler(cfg.TwilioWebhookSecret, engine, schedulerMetrics, logger),
		OutreachHandler:  outreach.NewHandler(cfg.TriggerToken, sweeper, logger),
		MetricsHandler:   metricsHandler,
		WebhookLimiter:   limiter,
	})

	// The outreach trigger answers only after the sweep, so the write
	// timeout must cover a full pass.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func buildStore(pool *pgxpool.Pool, logger *logging.Logger) records.Store {
	if pool == nil {
		logger.Warn("DATABASE_URL not set; using in-memory records")
		return records.NewInMemoryStore()
	}
	return records.NewPostgresStore(pool)
}

func setupMetrics() (http.Handler, *metrics.SchedulerMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewSchedulerMetrics(reg)
}

func evictIdleVisitors(ctx context.Context, limiter *httpmiddleware.RateLimiter, logger *logging.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Evict(10 * time.Minute); n > 0 {
				logger.Debug("evicted idle rate limit visitors", "count", n)
			}
		}
	}
}
