package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/infra/observability"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/port"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/reporting"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service")

// Option configures a service.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the wall clock used for "today" and trailing windows.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ReportService computes the dashboard reports from freshly fetched entities.
type ReportService struct {
	categories   *CategoryDirectory
	budgets      port.BudgetStore
	transactions port.TransactionStore
	metrics      *observability.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

// NewReportService creates the report service with all dependencies injected.
func NewReportService(
	categories *CategoryDirectory,
	budgets port.BudgetStore,
	transactions port.TransactionStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts ...Option,
) *ReportService {
	o := buildOptions(opts)
	return &ReportService{
		categories:   categories,
		budgets:      budgets,
		transactions: transactions,
		metrics:      metrics,
		logger:       logger,
		now:          o.now,
	}
}

// reportInputs is everything one report needs, fetched as a unit.
type reportInputs struct {
	months       []domain.Month
	from, to     domain.Date
	names        domain.CategoryNames
	active       reporting.ActiveSet
	transactions []domain.Transaction
}

// load fetches budgets, the range's transactions and (optionally) category
// names concurrently. Any failure cancels the others and nothing is returned.
func (s *ReportService) load(ctx context.Context, sess domain.Session, filter domain.Filter, withNames bool) (*reportInputs, error) {
	in := &reportInputs{months: filter.Months(s.now())}
	in.from, in.to = in.months[0].Start(), in.months[len(in.months)-1].End()

	// A single-month report only needs that cycle's budgets.
	var budgetMonth domain.Month
	if filter.Trailing == 0 {
		budgetMonth = filter.Month
	}

	var budgets []domain.Budget
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b, err := s.budgets.ListBudgets(gCtx, sess, budgetMonth)
		if err != nil {
			s.logger.Error("failed to fetch budgets", zap.String("range", filter.String()), zap.Error(err))
			return fmt.Errorf("budgets fetch: %w", err)
		}
		budgets = b
		return nil
	})

	g.Go(func() error {
		t, err := s.transactions.ListTransactions(gCtx, sess, domain.TransactionQuery{StartDate: in.from, EndDate: in.to})
		if err != nil {
			s.logger.Error("failed to fetch transactions", zap.String("range", filter.String()), zap.Error(err))
			return fmt.Errorf("transactions fetch: %w", err)
		}
		in.transactions = t
		return nil
	})

	if withNames {
		g.Go(func() error {
			names, err := s.categories.Names(gCtx, sess)
			if err != nil {
				return err
			}
			in.names = names
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	in.active = reporting.NewActiveSet(budgets)
	return in, nil
}

func (s *ReportService) observe(report string, start time.Time, err error) {
	s.metrics.RecordRequestDuration("report."+report, time.Since(start))
	if err != nil {
		s.metrics.IncrReport(report, "error")
		return
	}
	s.metrics.IncrReport(report, "success")
}

// Summary returns month-bucketed income and budget-gated expense for filter.
func (s *ReportService) Summary(ctx context.Context, sess domain.Session, filter domain.Filter) (report *domain.PeriodReport, err error) {
	ctx, span := tracer.Start(ctx, "ReportService.Summary")
	defer span.End()
	span.SetAttributes(attribute.String("range", filter.String()))

	start := time.Now()
	defer func() { s.observe("summary", start, err) }()

	in, err := s.load(ctx, sess, filter, false)
	if err != nil {
		return nil, err
	}
	return reporting.NewPeriodReport(filter, in.months, in.transactions, in.active), nil
}

// Breakdown returns the ranked expense distribution across budgeted categories.
func (s *ReportService) Breakdown(ctx context.Context, sess domain.Session, filter domain.Filter) (report *domain.BreakdownReport, err error) {
	ctx, span := tracer.Start(ctx, "ReportService.Breakdown")
	defer span.End()
	span.SetAttributes(attribute.String("range", filter.String()))

	start := time.Now()
	defer func() { s.observe("breakdown", start, err) }()

	in, err := s.load(ctx, sess, filter, true)
	if err != nil {
		return nil, err
	}
	return reporting.NewBreakdownReport(filter, in.from, in.to, in.transactions, in.active, in.names), nil
}

// Overview computes the summary and breakdown from a single fetch.
func (s *ReportService) Overview(ctx context.Context, sess domain.Session, filter domain.Filter) (ov *domain.Overview, err error) {
	ctx, span := tracer.Start(ctx, "ReportService.Overview")
	defer span.End()
	span.SetAttributes(attribute.String("range", filter.String()))

	start := time.Now()
	defer func() { s.observe("overview", start, err) }()

	in, err := s.load(ctx, sess, filter, true)
	if err != nil {
		return nil, err
	}
	return &domain.Overview{
		Summary:   reporting.NewPeriodReport(filter, in.months, in.transactions, in.active),
		Breakdown: reporting.NewBreakdownReport(filter, in.from, in.to, in.transactions, in.active, in.names),
		AsOf:      s.now(),
	}, nil
}

// CategoryTransactions lists the expenses of one category within filter's
// range, newest first.
func (s *ReportService) CategoryTransactions(ctx context.Context, sess domain.Session, filter domain.Filter, categoryID int64) (views []domain.TransactionView, err error) {
	ctx, span := tracer.Start(ctx, "ReportService.CategoryTransactions")
	defer span.End()
	span.SetAttributes(
		attribute.String("range", filter.String()),
		attribute.Int64("category.id", categoryID),
	)

	if categoryID <= 0 {
		return nil, &domain.ErrValidation{Field: "categoryId", Message: "must be a positive integer"}
	}

	start := time.Now()
	defer func() { s.observe("category_transactions", start, err) }()

	from, to := filter.DateRange(s.now())

	var (
		transactions []domain.Transaction
		names        domain.CategoryNames
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.transactions.ListTransactions(gCtx, sess, domain.TransactionQuery{
			StartDate:  from,
			EndDate:    to,
			Type:       domain.TxExpense,
			CategoryID: categoryID,
		})
		if err != nil {
			s.logger.Error("failed to fetch category transactions",
				zap.Int64("category_id", categoryID),
				zap.Error(err),
			)
			return fmt.Errorf("transactions fetch: %w", err)
		}
		transactions = t
		return nil
	})
	g.Go(func() error {
		n, err := s.categories.Names(gCtx, sess)
		names = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// The backend may ignore the filters, so apply them again.
	views = make([]domain.TransactionView, 0, len(transactions))
	for _, t := range transactions {
		if t.Type != domain.TxExpense || t.CategoryID != categoryID || !t.Date.Within(from, to) {
			continue
		}
		views = append(views, domain.TransactionView{Transaction: t, CategoryName: names.NameOf(t.CategoryID)})
	}
	sortNewestFirst(views)
	return views, nil
}

// sortNewestFirst orders by date descending, then id descending.
func sortNewestFirst(views []domain.TransactionView) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i].Date, views[j].Date
		if !a.Time().Equal(b.Time()) {
			return a.After(b)
		}
		return views[i].ID > views[j].ID
	})
}
