package handler

import (
	"net/http"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/infra/observability"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Reports
// ============================================================

func summaryHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/summary")
		defer span.End()

		filter, err := domain.ParseFilter(r.URL.Query().Get("range"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("range", filter.String()))

		report, err := svc.Summary(ctx, SessionFromContext(ctx), filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func breakdownHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/breakdown")
		defer span.End()

		filter, err := domain.ParseFilter(r.URL.Query().Get("range"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("range", filter.String()))

		report, err := svc.Breakdown(ctx, SessionFromContext(ctx), filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func overviewHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/overview")
		defer span.End()

		filter, err := domain.ParseFilter(r.URL.Query().Get("range"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("range", filter.String()))

		ov, err := svc.Overview(ctx, SessionFromContext(ctx), filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, ov)
	}
}

// categoryTransactionsHandler serves the breakdown detail panel.
func categoryTransactionsHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/breakdown/{categoryId}/transactions")
		defer span.End()

		categoryID, err := idParam(r, "categoryId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		filter, err := domain.ParseFilter(r.URL.Query().Get("range"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(
			attribute.Int64("category.id", categoryID),
			attribute.String("range", filter.String()),
		)

		items, err := svc.CategoryTransactions(ctx, SessionFromContext(ctx), filter, categoryID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.TransactionView]{Data: items, Total: len(items)})
	}
}

func upstreamMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetUpstreamSnapshot())
	}
}
