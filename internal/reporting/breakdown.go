package reporting

import (
	"sort"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Palette is the donut colour pool, assigned by rank and cycled when exhausted.
var Palette = []string{
	"#6E47E8", "#10B981", "#F59E0B", "#EF4444", "#06B6D4", "#A78BFA",
	"#F97316", "#22C55E", "#3B82F6", "#E11D48", "#14B8A6", "#8B5CF6",
	"#84CC16", "#F43F5E", "#38BDF8", "#C084FC", "#D946EF", "#FACC15",
	"#34D399", "#60A5FA", "#FB7185", "#2DD4BF", "#4ADE80", "#FBBF24",
}

// ColorFor returns the palette colour of the share at rank (0-based).
func ColorFor(rank int) string {
	return Palette[rank%len(Palette)]
}

// Breakdown sums tracked expenses per category and ranks them by amount
// (descending, ties by ascending category ID). Categories summing to zero
// are dropped. It returns the shares and their total.
func Breakdown(transactions []domain.Transaction, active ActiveSet, nameOf func(int64) string) ([]domain.CategoryShare, decimal.Decimal) {
	sums := make(map[int64]decimal.Decimal)
	for _, t := range transactions {
		if !active.Counts(t) {
			continue
		}
		sums[t.CategoryID] = sums[t.CategoryID].Add(t.Amount)
	}

	shares := make([]domain.CategoryShare, 0, len(sums))
	total := decimal.Zero
	for id, amount := range sums {
		if !amount.IsPositive() {
			continue
		}
		shares = append(shares, domain.CategoryShare{CategoryID: id, Amount: amount})
		total = total.Add(amount)
	}

	sort.Slice(shares, func(i, j int) bool {
		if c := shares[i].Amount.Cmp(shares[j].Amount); c != 0 {
			return c > 0
		}
		return shares[i].CategoryID < shares[j].CategoryID
	})

	for i := range shares {
		shares[i].Rank = i + 1
		shares[i].Color = ColorFor(i)
		if nameOf != nil {
			shares[i].Name = nameOf(shares[i].CategoryID)
		} else {
			shares[i].Name = domain.FallbackCategoryName(shares[i].CategoryID)
		}
		if total.IsPositive() {
			shares[i].Percentage = shares[i].Amount.Mul(hundred).Div(total).InexactFloat64()
		}
	}
	return shares, total
}

// NewBreakdownReport builds the breakdown for a filter's date range.
func NewBreakdownReport(filter domain.Filter, from, to domain.Date, transactions []domain.Transaction, active ActiveSet, names domain.CategoryNames) *domain.BreakdownReport {
	shares, total := Breakdown(transactions, active, names.NameOf)
	return &domain.BreakdownReport{
		Filter: filter,
		From:   from,
		To:     to,
		Shares: shares,
		Total:  total,
	}
}
