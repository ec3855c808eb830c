package main

import (
	"errors"
	"net/http"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/infra/budgetapi"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/infra/cache"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/infra/observability"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/infra/resilience"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/service"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app is the service graph one command invocation runs against.
type app struct {
	session domain.Session
	prefs   domain.Preferences
	reports *service.ReportService
	budgets *service.BudgetService
	metrics *observability.Metrics
	logger  *zap.Logger
	close   func()
}

func newApp() (*app, error) {
	sess := domain.Session{
		AccessToken: viper.GetString("api.token"),
		CSRFToken:   viper.GetString("api.csrf_token"),
	}
	if !sess.Authenticated() {
		return nil, errors.New("no session token: pass --token, set api.token in the config file or BUDGETCTL_API_TOKEN")
	}

	logger := observability.NewLogger(viper.GetString("log.level"))
	metrics := observability.NewMetrics()

	cfg := resilience.Config{
		MaxRetries:     viper.GetInt("api.max_retries"),
		InitialBackoff: viper.GetDuration("api.initial_backoff"),
		MaxConcurrency: viper.GetInt("api.max_concurrency"),
	}

	cb := resilience.NewCircuitBreaker(budgetapi.ServiceName, budgetapi.IsBreakerSuccess, metrics.SetCircuitState)
	httpClient := &http.Client{Timeout: viper.GetDuration("api.timeout")}
	api := budgetapi.NewClient(httpClient, viper.GetString("api.url"), cb, cfg, budgetapi.NewPager(), metrics, logger)

	categoryCache := cache.New[[]domain.Category](viper.GetDuration("cache.ttl"))
	categories := service.NewCategoryDirectory(api, categoryCache, metrics, logger)

	return &app{
		session: sess,
		prefs:   domain.Preferences{Theme: domain.ResolveTheme(viper.GetString("theme"), false)},
		reports: service.NewReportService(categories, api, api, metrics, logger),
		budgets: service.NewBudgetService(categories, api, api, metrics, logger),
		metrics: metrics,
		logger:  logger,
		close: func() {
			categoryCache.Stop()
			_ = logger.Sync()
		},
	}, nil
}
