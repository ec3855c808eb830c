package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/config"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/handler"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/infra/budgetapi"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/infra/cache"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/infra/observability"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/infra/resilience"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "ignoring malformed .env: %v\n", err)
	}

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("budget_api_url", cfg.BudgetAPIURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("page_size", cfg.PageSize),
		zap.Int("max_pages", cfg.MaxPages),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "budget-buddy-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	categoryCache := cache.New[[]domain.Category](cfg.CacheTTL)
	defer categoryCache.Stop()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker(budgetapi.ServiceName, budgetapi.IsBreakerSuccess, metrics.SetCircuitState)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	pager := budgetapi.Pager{PageSize: cfg.PageSize, MaxPages: cfg.MaxPages}
	api := budgetapi.NewClient(httpClient, cfg.BudgetAPIURL, cb, resilienceCfg, pager, metrics, logger)

	// --- Services ---
	categories := service.NewCategoryDirectory(api, categoryCache, metrics, logger)
	services := handler.Services{
		Reports:      service.NewReportService(categories, api, api, metrics, logger),
		Budgets:      service.NewBudgetService(categories, api, api, metrics, logger),
		Transactions: service.NewTransactionService(categories, api, metrics, logger),
	}

	// --- Router ---
	router := handler.NewRouter(services, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
