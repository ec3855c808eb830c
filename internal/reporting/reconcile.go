package reporting

import (
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type spend struct {
	total    decimal.Decimal
	lastPaid domain.Date
}

// Reconcile computes spent, percentage, band and last paid date for each budget,
// in input order. A budget counts only expenses of its category dated in its
// cycle month. Duplicate budgets for the same (category, month) are each
// reconciled against the same spend.
func Reconcile(budgets []domain.Budget, transactions []domain.Transaction) []domain.BudgetUtilization {
	spent := make(map[budgetKey]*spend)
	for _, t := range transactions {
		if t.Type != domain.TxExpense || t.CategoryID == 0 || t.Date.IsZero() {
			continue
		}
		key := budgetKey{t.CategoryID, t.Date.Month()}
		s, ok := spent[key]
		if !ok {
			s = &spend{total: decimal.Zero}
			spent[key] = s
		}
		s.total = s.total.Add(t.Amount)
		if s.lastPaid.IsZero() || t.Date.After(s.lastPaid) {
			s.lastPaid = t.Date
		}
	}

	out := make([]domain.BudgetUtilization, 0, len(budgets))
	for _, b := range budgets {
		u := domain.BudgetUtilization{Budget: b, Spent: decimal.Zero}
		if s, ok := spent[budgetKey{b.CategoryID, b.CycleMonth}]; ok {
			u.Spent = s.total
			last := s.lastPaid
			u.LastPaidDate = &last
		}
		u.Remaining = b.Amount.Sub(u.Spent)
		u.Percentage = Percentage(u.Spent, b.Amount)
		u.Band = domain.BandFor(u.Percentage)
		out = append(out, u)
	}
	return out
}

// Percentage is round(spent/amount*100) clamped to [0, 100]; 0 when amount <= 0.
func Percentage(spent, amount decimal.Decimal) int {
	if !amount.IsPositive() {
		return 0
	}
	pct := spent.Mul(hundred).Div(amount).Round(0).IntPart()
	switch {
	case pct > 100:
		return 100
	case pct < 0:
		return 0
	}
	return int(pct)
}
