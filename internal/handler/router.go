package handler

import (
	"net/http"
	"time"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/infra/observability"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services groups what the router serves. A nil service leaves its routes
// unmounted, which keeps operational endpoints testable on their own.
type Services struct {
	Reports      *service.ReportService
	Budgets      *service.BudgetService
	Transactions *service.TransactionService
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(metrics))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/upstream", upstreamMetricsHandler(metrics))

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(logger))

			if svc.Reports != nil {
				r.Route("/reports", func(r chi.Router) {
					r.Get("/summary", summaryHandler(svc.Reports, logger))
					r.Get("/breakdown", breakdownHandler(svc.Reports, logger))
					r.Get("/overview", overviewHandler(svc.Reports, logger))
					r.Get("/breakdown/{categoryId}/transactions", categoryTransactionsHandler(svc.Reports, logger))
				})
			}

			if svc.Budgets != nil {
				r.Get("/categories", listCategoriesHandler(svc.Budgets, logger))
				r.Route("/budgets", func(r chi.Router) {
					r.Get("/", listBudgetsHandler(svc.Budgets, logger))
					r.Post("/", createBudgetHandler(svc.Budgets, logger))
					r.Put("/{budgetId}", updateBudgetHandler(svc.Budgets, logger))
					r.Delete("/{budgetId}", deleteBudgetHandler(svc.Budgets, logger))
				})
			}

			if svc.Transactions != nil {
				r.Route("/transactions", func(r chi.Router) {
					r.Get("/", listTransactionsHandler(svc.Transactions, logger))
					r.Post("/", createTransactionHandler(svc.Transactions, logger))
				})
			}
		})
	})

	return r
}

// healthzHandler reports the BFA itself plus the upstream API as seen
// through its circuit breaker.
func healthzHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)
		snap := metrics.GetUpstreamSnapshot()

		upstream := "healthy"
		switch snap.CircuitState {
		case gobreaker.StateOpen.String():
			upstream = "unhealthy"
		case gobreaker.StateHalfOpen.String():
			upstream = "degraded"
		}

		services := []domain.ServiceHealth{
			{Name: "bfa-api", Status: "healthy", LastChecked: now},
			{Name: "budget-api", Status: upstream, LastChecked: now},
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
