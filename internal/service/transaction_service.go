package service

import (
	"context"
	"fmt"
	"time"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/infra/observability"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TransactionService records and lists transactions.
type TransactionService struct {
	categories   *CategoryDirectory
	transactions port.TransactionStore
	metrics      *observability.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

// NewTransactionService creates the transaction service with all dependencies injected.
func NewTransactionService(
	categories *CategoryDirectory,
	transactions port.TransactionStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts ...Option,
) *TransactionService {
	o := buildOptions(opts)
	return &TransactionService{
		categories:   categories,
		transactions: transactions,
		metrics:      metrics,
		logger:       logger,
		now:          o.now,
	}
}

// Create records a transaction dated today.
func (s *TransactionService) Create(ctx context.Context, sess domain.Session, req domain.TransactionRequest) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.Create")
	defer span.End()

	if !req.Type.Valid() {
		return nil, &domain.ErrValidation{Field: "type", Message: "must be income or expense"}
	}
	if !req.Amount.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be greater than zero"}
	}
	if req.CategoryID < 0 {
		return nil, &domain.ErrValidation{Field: "category_id", Message: "must be a positive integer"}
	}
	span.SetAttributes(
		attribute.String("transaction.type", string(req.Type)),
		attribute.Int64("category.id", req.CategoryID),
	)

	today := domain.DateOf(s.now())
	t, err := s.transactions.CreateTransaction(ctx, sess, req, today)
	if err != nil {
		s.logger.Warn("transaction create failed", zap.String("type", string(req.Type)), zap.Error(err))
		return nil, fmt.Errorf("transaction create: %w", err)
	}
	s.logger.Info("transaction created",
		zap.Int64("transaction_id", t.ID),
		zap.String("type", string(t.Type)),
		zap.String("date", t.Date.String()),
	)
	return t, nil
}

// List returns the transactions between start and end inclusive, newest first,
// with category names resolved. A zero range means the current month.
func (s *TransactionService) List(ctx context.Context, sess domain.Session, startDate, endDate domain.Date) ([]domain.TransactionView, error) {
	if startDate.IsZero() && endDate.IsZero() {
		m := domain.MonthOf(s.now())
		startDate, endDate = m.Start(), m.End()
	}
	if !startDate.IsZero() && !endDate.IsZero() && endDate.Before(startDate) {
		return nil, &domain.ErrValidation{Field: "end_date", Message: "must not be before start_date"}
	}

	ctx, span := tracer.Start(ctx, "TransactionService.List")
	defer span.End()
	span.SetAttributes(
		attribute.String("range.start", startDate.String()),
		attribute.String("range.end", endDate.String()),
	)

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("transactions.list", time.Since(start)) }()

	var (
		transactions []domain.Transaction
		names        domain.CategoryNames
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.transactions.ListTransactions(gCtx, sess, domain.TransactionQuery{StartDate: startDate, EndDate: endDate})
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
		s.logger.Error("failed to list transactions", zap.Error(err))
		return nil, err
	}

	views := make([]domain.TransactionView, 0, len(transactions))
	for _, t := range transactions {
		if !t.Date.Within(startDate, endDate) {
			continue
		}
		name := ""
		if t.CategoryID != 0 {
			name = names.NameOf(t.CategoryID)
		}
		views = append(views, domain.TransactionView{Transaction: t, CategoryName: name})
	}
	sortNewestFirst(views)
	return views, nil
}
