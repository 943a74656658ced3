// Package main is the entry point for the governance gateway.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tamshai/govern/internal/audit"
	"github.com/tamshai/govern/internal/config"
	"github.com/tamshai/govern/internal/confirm"
	"github.com/tamshai/govern/internal/gateway"
	"github.com/tamshai/govern/internal/guard"
	"github.com/tamshai/govern/internal/health"
	"github.com/tamshai/govern/internal/identity"
	"github.com/tamshai/govern/internal/mask"
	"github.com/tamshai/govern/internal/middleware"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configFile := flag.String("config", "", "path to optional YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("Governance Gateway")
		fmt.Println()
		fmt.Println("Usage: gateway [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configFile)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	logger.Info("configuration loaded")
	for key, value := range cfg.LogSummary() {
		logger.Debug("config", key, value)
	}

	// Confirmation store backed by Redis so pending mutations survive
	// gateway restarts and are shared across replicas.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("failed to close redis client", "error", err)
		}
	}()

	broker := confirm.NewBroker(
		confirm.NewRedisStore(redisClient),
		time.Duration(cfg.ConfirmationTTLSeconds)*time.Second,
	)

	// Audit repository is optional; without a database the trail still
	// reaches the structured log and any configured forwarder.
	var auditRepo audit.Repository = audit.NewInMemoryRepository()
	var auditDB *sql.DB
	if cfg.AuditDatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.AuditDatabaseURL)
		if err != nil {
			logger.Error("failed to open audit database", "error", err)
			os.Exit(1)
		}
		auditDB = db
		auditRepo = audit.NewPostgresRepository(db)
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("failed to close audit database", "error", err)
			}
		}()
	}

	auditPipe := audit.NewPipeline(audit.Options{
		Enabled:     cfg.AuditEnabled,
		MinSeverity: audit.Severity(strings.ToLower(cfg.AuditMinSeverity)),
		Service:     cfg.ServiceName,
		Environment: cfg.Env,
	}, logger, auditRepo, audit.NewForwarder(cfg.LogSinkURL, cfg.LogSinkToken, cfg.SIEMWebhookURL))

	keyTTL := time.Duration(cfg.KeyCacheTTLMinutes) * time.Minute
	resolver := identity.NewResolver(
		identity.RealmConfig{
			IssuerURL: cfg.InternalIssuerURL,
			Keys:      identity.NewJWKSSource(cfg.InternalJWKSURL, keyTTL),
			ClientID:  cfg.ServiceName,
		},
		identity.RealmConfig{
			IssuerURL: cfg.CustomerIssuerURL,
			Keys:      identity.NewJWKSSource(cfg.CustomerJWKSURL, keyTTL),
		},
	)

	metrics := middleware.NewMetrics()
	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	store := gateway.NewDemoStore()
	service := gateway.NewService(
		resolver,
		guard.NewGuard(guard.Limits{
			MaxPromptLength: cfg.MaxPromptLength,
			MaxOutputLength: cfg.MaxOutputLength,
			MaxQueryResults: cfg.MaxQueryResults,
		}),
		mask.New(cfg.SalaryBandIncrement),
		broker,
		auditPipe,
		metrics,
		gateway.NewDemoRegistry(store),
		logger,
		gateway.ServiceOptions{MaxQueryResults: cfg.MaxQueryResults},
	)
	handler := gateway.NewHandler(service)

	healthHandler := health.NewHandler()
	healthHandler.Add("redis", health.NewRedisChecker(redisClient))
	if auditDB != nil {
		healthHandler.Add("database", health.NewDBChecker(auditDB))
	}

	rateStore := middleware.NewInMemoryRateLimitStore()
	rateObserver := func(r *http.Request, key string) {
		auditPipe.Log(r.Context(), audit.RateLimitExceeded(
			middleware.ClientIP(r), r.URL.Path, middleware.GetRequestID(r.Context())))
		metrics.IncRateLimitBlocked(r.URL.Path)
	}
	askLimiter := middleware.RateLimiter(rateStore, middleware.DefaultAskLimit(), middleware.CallerKeyFunc(), rateObserver)
	executeLimiter := middleware.RateLimiter(rateStore, middleware.DefaultExecuteLimit(), middleware.CallerKeyFunc(), rateObserver)

	mux := http.NewServeMux()
	mux.Handle("POST /ask", askLimiter(http.HandlerFunc(handler.Ask)))
	mux.Handle("POST /execute", executeLimiter(http.HandlerFunc(handler.Execute)))
	mux.Handle("GET /health", healthHandler)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Apply middleware: RequestID -> Logging -> HTTPMetrics
	chained := middleware.RequestID(
		middleware.Logging(logger)(
			middleware.HTTPMetrics(metrics)(mux)))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      chained,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Expired rate limit buckets accumulate per caller key; sweep them
	// in the background.
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rateStore.Cleanup()
			case <-cleanupDone:
				return
			}
		}
	}()

	go func() {
		logger.Info("starting gateway", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	close(cleanupDone)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
