package service_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/infra/cache"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/infra/observability"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	testSession = domain.Session{AccessToken: "tok", CSRFToken: "csrf"}
	fixedNow    = time.Date(2025, time.March, 15, 9, 30, 0, 0, time.UTC)
)

func clock() service.Option {
	return service.WithClock(func() time.Time { return fixedNow })
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func amount(v string) decimal.NullDecimal { return decimal.NewNullDecimal(dec(v)) }

func mustMonth(s string) domain.Month {
	m, err := domain.ParseMonth(s)
	if err != nil {
		panic(err)
	}
	return m
}

func mustDate(s string) domain.Date {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// fakeBackend implements every store port in memory.
type fakeBackend struct {
	mu sync.Mutex

	categories   []domain.Category
	budgets      []domain.Budget
	transactions []domain.Transaction

	categoriesErr   error
	budgetsErr      error
	transactionsErr error
	createErr       error

	categoryCalls int32
	categoryDelay time.Duration

	lastTxQuery   domain.TransactionQuery
	lastBudgetReq domain.BudgetRequest
	lastTxDate    domain.Date
	deleted       []int64
}

func (f *fakeBackend) ListCategories(ctx context.Context, _ domain.Session) ([]domain.Category, error) {
	atomic.AddInt32(&f.categoryCalls, 1)
	if f.categoryDelay > 0 {
		select {
		case <-time.After(f.categoryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.categoriesErr != nil {
		return nil, f.categoriesErr
	}
	return f.categories, nil
}

func (f *fakeBackend) ListBudgets(_ context.Context, _ domain.Session, month domain.Month) ([]domain.Budget, error) {
	if f.budgetsErr != nil {
		return nil, f.budgetsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Budget
	for _, b := range f.budgets {
		if month.IsZero() || b.CycleMonth == month {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateBudget(_ context.Context, _ domain.Session, req domain.BudgetRequest) (*domain.Budget, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastBudgetReq = req
	b := domain.Budget{ID: int64(len(f.budgets) + 100), CategoryID: req.CategoryID, Amount: req.Amount.Decimal, CycleMonth: req.CycleMonth}
	f.budgets = append(f.budgets, b)
	return &b, nil
}

func (f *fakeBackend) UpdateBudget(_ context.Context, _ domain.Session, id int64, req domain.BudgetRequest) (*domain.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, b := range f.budgets {
		if b.ID == id {
			f.budgets[i].Amount = req.Amount.Decimal
			out := f.budgets[i]
			return &out, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "budget"}
}

func (f *fakeBackend) DeleteBudget(_ context.Context, _ domain.Session, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBackend) ListTransactions(_ context.Context, _ domain.Session, q domain.TransactionQuery) ([]domain.Transaction, error) {
	f.mu.Lock()
	f.lastTxQuery = q
	f.mu.Unlock()
	if f.transactionsErr != nil {
		return nil, f.transactionsErr
	}
	return f.transactions, nil
}

func (f *fakeBackend) CreateTransaction(_ context.Context, _ domain.Session, req domain.TransactionRequest, date domain.Date) (*domain.Transaction, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTxDate = date
	return &domain.Transaction{ID: 1, CategoryID: req.CategoryID, Type: req.Type, Amount: req.Amount, Date: date, Note: req.Note}, nil
}

type fixture struct {
	backend      *fakeBackend
	metrics      *observability.Metrics
	directory    *service.CategoryDirectory
	reports      *service.ReportService
	budgets      *service.BudgetService
	transactions *service.TransactionService
}

func newFixture(backend *fakeBackend) *fixture {
	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	c := cache.New[[]domain.Category](time.Minute)
	dir := service.NewCategoryDirectory(backend, c, metrics, logger)
	return &fixture{
		backend:      backend,
		metrics:      metrics,
		directory:    dir,
		reports:      service.NewReportService(dir, backend, backend, metrics, logger, clock()),
		budgets:      service.NewBudgetService(dir, backend, backend, metrics, logger, clock()),
		transactions: service.NewTransactionService(dir, backend, metrics, logger, clock()),
	}
}
