package service

import (
	"context"
	"fmt"
	"time"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/infra/observability"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/port"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/reporting"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BudgetService manages budgets and reconciles them against spending.
type BudgetService struct {
	categories   *CategoryDirectory
	budgets      port.BudgetStore
	transactions port.TransactionStore
	metrics      *observability.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

// NewBudgetService creates the budget service with all dependencies injected.
func NewBudgetService(
	categories *CategoryDirectory,
	budgets port.BudgetStore,
	transactions port.TransactionStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts ...Option,
) *BudgetService {
	o := buildOptions(opts)
	return &BudgetService{
		categories:   categories,
		budgets:      budgets,
		transactions: transactions,
		metrics:      metrics,
		logger:       logger,
		now:          o.now,
	}
}

// List reconciles the budgets of one cycle month (the current month when zero)
// against that month's expenses.
func (s *BudgetService) List(ctx context.Context, sess domain.Session, month domain.Month) ([]domain.BudgetUtilization, error) {
	if month.IsZero() {
		month = domain.MonthOf(s.now())
	}

	ctx, span := tracer.Start(ctx, "BudgetService.List")
	defer span.End()
	span.SetAttributes(attribute.String("cycle_month", month.String()))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("budgets.list", time.Since(start)) }()

	var (
		budgets      []domain.Budget
		transactions []domain.Transaction
		names        domain.CategoryNames
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := s.budgets.ListBudgets(gCtx, sess, month)
		if err != nil {
			return fmt.Errorf("budgets fetch: %w", err)
		}
		budgets = b
		return nil
	})
	g.Go(func() error {
		t, err := s.transactions.ListTransactions(gCtx, sess, domain.TransactionQuery{
			StartDate: month.Start(),
			EndDate:   month.End(),
			Type:      domain.TxExpense,
		})
		if err != nil {
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
		s.logger.Error("failed to load budgets", zap.String("cycle_month", month.String()), zap.Error(err))
		return nil, err
	}

	// The backend may return other cycles; keep the requested one.
	inMonth := budgets[:0:0]
	for _, b := range budgets {
		if b.CycleMonth == month {
			inMonth = append(inMonth, b)
		}
	}

	out := reporting.Reconcile(inMonth, transactions)
	for i := range out {
		out[i].CategoryName = names.NameOf(out[i].Budget.CategoryID)
	}
	return out, nil
}

// Create adds a budget. The cycle month defaults to the current month, and a
// second budget for the same category and month is rejected as a conflict.
func (s *BudgetService) Create(ctx context.Context, sess domain.Session, req domain.BudgetRequest) (*domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.Create")
	defer span.End()

	if req.CategoryID <= 0 {
		return nil, &domain.ErrValidation{Field: "category_id", Message: "is required"}
	}
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.CycleMonth.IsZero() {
		req.CycleMonth = domain.MonthOf(s.now())
	}
	span.SetAttributes(
		attribute.Int64("category.id", req.CategoryID),
		attribute.String("cycle_month", req.CycleMonth.String()),
	)

	existing, err := s.budgets.ListBudgets(ctx, sess, req.CycleMonth)
	if err != nil {
		return nil, fmt.Errorf("budgets fetch: %w", err)
	}
	for _, b := range existing {
		if b.CategoryID == req.CategoryID && b.CycleMonth == req.CycleMonth {
			return nil, &domain.ErrConflict{
				Message: fmt.Sprintf("category %d already has a budget for %s", req.CategoryID, req.CycleMonth),
			}
		}
	}

	b, err := s.budgets.CreateBudget(ctx, sess, req)
	if err != nil {
		s.logger.Warn("budget create failed",
			zap.Int64("category_id", req.CategoryID),
			zap.String("cycle_month", req.CycleMonth.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("budget create: %w", err)
	}
	s.logger.Info("budget created",
		zap.Int64("budget_id", b.ID),
		zap.Int64("category_id", b.CategoryID),
		zap.String("cycle_month", b.CycleMonth.String()),
	)
	return b, nil
}

// Update changes a budget's amount and, optionally, its category.
func (s *BudgetService) Update(ctx context.Context, sess domain.Session, id int64, req domain.BudgetRequest) (*domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.Update")
	defer span.End()
	span.SetAttributes(attribute.Int64("budget.id", id))

	if id <= 0 {
		return nil, &domain.ErrValidation{Field: "budgetId", Message: "must be a positive integer"}
	}
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.CategoryID < 0 {
		return nil, &domain.ErrValidation{Field: "category_id", Message: "must be a positive integer"}
	}

	b, err := s.budgets.UpdateBudget(ctx, sess, id, req)
	if err != nil {
		return nil, fmt.Errorf("budget update: %w", err)
	}
	return b, nil
}

func validateAmount(amount decimal.NullDecimal) error {
	if !amount.Valid {
		return &domain.ErrValidation{Field: "amount", Message: "is required"}
	}
	if amount.Decimal.IsNegative() {
		return &domain.ErrValidation{Field: "amount", Message: "must not be negative"}
	}
	return nil
}

// Delete removes a budget.
func (s *BudgetService) Delete(ctx context.Context, sess domain.Session, id int64) error {
	ctx, span := tracer.Start(ctx, "BudgetService.Delete")
	defer span.End()
	span.SetAttributes(attribute.Int64("budget.id", id))

	if id <= 0 {
		return &domain.ErrValidation{Field: "budgetId", Message: "must be a positive integer"}
	}
	if err := s.budgets.DeleteBudget(ctx, sess, id); err != nil {
		return fmt.Errorf("budget delete: %w", err)
	}
	s.logger.Info("budget deleted", zap.Int64("budget_id", id))
	return nil
}

// Categories lists the session's categories.
func (s *BudgetService) Categories(ctx context.Context, sess domain.Session) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.Categories")
	defer span.End()

	return s.categories.List(ctx, sess)
}
