// Package reporting reconciles transactions against budgets and derives
// the period and category views shown on the dashboard.
//
// Everything here is a pure function over already-fetched entities: no I/O,
// no clocks, no shared state. Expense gating follows one rule throughout:
// an expense counts only if its category has a budget whose cycle month
// equals the month of the transaction.
package reporting

import "github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"

type budgetKey struct {
	categoryID int64
	month      domain.Month
}

// ActiveSet records which (category, cycle month) pairs hold a budget.
type ActiveSet struct {
	keys map[budgetKey]struct{}
}

// NewActiveSet indexes budgets by category and cycle month.
// Budgets without a cycle month can never gate anything and are skipped.
func NewActiveSet(budgets []domain.Budget) ActiveSet {
	s := ActiveSet{keys: make(map[budgetKey]struct{}, len(budgets))}
	for _, b := range budgets {
		if b.CycleMonth.IsZero() || b.CategoryID == 0 {
			continue
		}
		s.keys[budgetKey{b.CategoryID, b.CycleMonth}] = struct{}{}
	}
	return s
}

// Has reports whether categoryID has a budget for month.
func (s ActiveSet) Has(categoryID int64, month domain.Month) bool {
	_, ok := s.keys[budgetKey{categoryID, month}]
	return ok
}

// Counts reports whether t is a tracked expense.
func (s ActiveSet) Counts(t domain.Transaction) bool {
	return t.Type == domain.TxExpense && t.CategoryID != 0 && s.Has(t.CategoryID, t.Date.Month())
}

// Len is the number of distinct (category, month) pairs.
func (s ActiveSet) Len() int {
	return len(s.keys)
}
