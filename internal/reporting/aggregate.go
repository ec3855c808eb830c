package reporting

import (
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Aggregate buckets transactions by calendar month, one bucket per entry of
// months and in the same order. Income is never gated; expense only counts
// when active holds a budget for the transaction's category and month.
// Months without transactions yield zero buckets.
func Aggregate(months []domain.Month, transactions []domain.Transaction, active ActiveSet) []domain.PeriodBucket {
	buckets := make([]domain.PeriodBucket, len(months))
	index := make(map[domain.Month]int, len(months))
	for i, m := range months {
		buckets[i] = domain.PeriodBucket{Month: m, Income: decimal.Zero, Expense: decimal.Zero}
		if _, dup := index[m]; !dup {
			index[m] = i
		}
	}

	for _, t := range transactions {
		i, ok := index[t.Date.Month()]
		if !ok {
			continue
		}
		switch t.Type {
		case domain.TxIncome:
			buckets[i].Income = buckets[i].Income.Add(t.Amount)
		case domain.TxExpense:
			if active.Counts(t) {
				buckets[i].Expense = buckets[i].Expense.Add(t.Amount)
			}
		}
	}

	for i := range buckets {
		buckets[i].Net = buckets[i].Income.Sub(buckets[i].Expense)
	}
	return buckets
}

// NewPeriodReport aggregates a filter's months and totals the buckets.
func NewPeriodReport(filter domain.Filter, months []domain.Month, transactions []domain.Transaction, active ActiveSet) *domain.PeriodReport {
	buckets := Aggregate(months, transactions, active)

	report := &domain.PeriodReport{
		Filter:       filter,
		Buckets:      buckets,
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	if len(months) > 0 {
		report.From = months[0].Start()
		report.To = months[len(months)-1].End()
	}
	for _, b := range buckets {
		report.TotalIncome = report.TotalIncome.Add(b.Income)
		report.TotalExpense = report.TotalExpense.Add(b.Expense)
	}
	report.Net = report.TotalIncome.Sub(report.TotalExpense)
	return report
}
