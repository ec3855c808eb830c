// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"
)

// CategoryFetcher retrieves the session's categories.
type CategoryFetcher interface {
	ListCategories(ctx context.Context, s domain.Session) ([]domain.Category, error)
}

// BudgetStore reads and writes budgets. A zero month lists every cycle.
type BudgetStore interface {
	ListBudgets(ctx context.Context, s domain.Session, month domain.Month) ([]domain.Budget, error)
	CreateBudget(ctx context.Context, s domain.Session, req domain.BudgetRequest) (*domain.Budget, error)
	UpdateBudget(ctx context.Context, s domain.Session, id int64, req domain.BudgetRequest) (*domain.Budget, error)
	DeleteBudget(ctx context.Context, s domain.Session, id int64) error
}

// TransactionStore lists (all pages) and records transactions.
type TransactionStore interface {
	ListTransactions(ctx context.Context, s domain.Session, q domain.TransactionQuery) ([]domain.Transaction, error)
	CreateTransaction(ctx context.Context, s domain.Session, req domain.TransactionRequest, date domain.Date) (*domain.Transaction, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
