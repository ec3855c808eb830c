package reporting_test

import (
	"testing"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/reporting"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakdown_TwoCategories(t *testing.T) {
	budgets := []domain.Budget{
		{ID: 1, CategoryID: 1, Amount: dec("1000"), CycleMonth: month("2025-01")},
		{ID: 2, CategoryID: 2, Amount: dec("1000"), CycleMonth: month("2025-01")},
	}
	txns := []domain.Transaction{
		expense(1, 1, "300", "2025-01-05"),
		expense(2, 2, "400", "2025-01-06"),
		expense(3, 2, "500", "2025-01-07"),
		income(4, 2, "9000", "2025-01-07"),
	}
	names := domain.CategoryNames{1: "Food", 2: "Travel"}

	shares, total := reporting.Breakdown(txns, reporting.NewActiveSet(budgets), names.NameOf)

	require.Len(t, shares, 2)
	assert.True(t, dec("1200").Equal(total))

	assert.Equal(t, "Travel", shares[0].Name)
	assert.True(t, dec("900").Equal(shares[0].Amount))
	assert.InDelta(t, 75.0, shares[0].Percentage, 1e-9)
	assert.Equal(t, 1, shares[0].Rank)
	assert.Equal(t, reporting.Palette[0], shares[0].Color)

	assert.Equal(t, "Food", shares[1].Name)
	assert.InDelta(t, 25.0, shares[1].Percentage, 1e-9)
	assert.Equal(t, reporting.Palette[1], shares[1].Color)
}

func TestBreakdown_ExcludesUnbudgetedAndOtherMonths(t *testing.T) {
	budgets := []domain.Budget{{ID: 1, CategoryID: 1, Amount: dec("100"), CycleMonth: month("2025-02")}}
	txns := []domain.Transaction{
		expense(1, 1, "10", "2025-01-31"), // budget is for February only
		expense(2, 1, "20", "2025-02-01"),
		expense(3, 5, "70", "2025-02-01"), // no budget
		expense(4, 0, "70", "2025-02-01"), // no category
	}

	shares, total := reporting.Breakdown(txns, reporting.NewActiveSet(budgets), nil)

	require.Len(t, shares, 1)
	assert.Equal(t, int64(1), shares[0].CategoryID)
	assert.Equal(t, "Category 1", shares[0].Name)
	assert.True(t, dec("20").Equal(total))
	assert.InDelta(t, 100.0, shares[0].Percentage, 1e-9)
}

func TestBreakdown_EmptyWhenNothingRetained(t *testing.T) {
	shares, total := reporting.Breakdown(nil, reporting.NewActiveSet(nil), nil)
	assert.Empty(t, shares)
	assert.True(t, total.IsZero())
}

func TestBreakdown_PercentagesSumTo100(t *testing.T) {
	var budgets []domain.Budget
	var txns []domain.Transaction
	amounts := []string{"1", "2", "3", "5", "7", "11", "13"}
	for i, a := range amounts {
		cat := int64(i + 1)
		budgets = append(budgets, domain.Budget{ID: cat, CategoryID: cat, Amount: dec("100"), CycleMonth: month("2025-04")})
		txns = append(txns, expense(cat, cat, a, "2025-04-10"))
	}

	shares, _ := reporting.Breakdown(txns, reporting.NewActiveSet(budgets), nil)

	sum := 0.0
	for _, s := range shares {
		sum += s.Percentage
	}
	assert.InDelta(t, 100.0, sum, 1e-6)
}

func TestBreakdown_DeterministicOrderAndColors(t *testing.T) {
	var budgets []domain.Budget
	var txns []domain.Transaction
	for cat := int64(1); cat <= 30; cat++ {
		budgets = append(budgets, domain.Budget{ID: cat, CategoryID: cat, Amount: dec("10"), CycleMonth: month("2025-04")})
		txns = append(txns, expense(cat, cat, "5", "2025-04-10")) // all tied
	}
	active := reporting.NewActiveSet(budgets)

	first, _ := reporting.Breakdown(txns, active, nil)
	for run := 0; run < 5; run++ {
		again, _ := reporting.Breakdown(txns, active, nil)
		assert.Equal(t, first, again)
	}

	require.Len(t, first, 30)
	for i, s := range first {
		assert.Equal(t, int64(i+1), s.CategoryID, "ties break by category id")
		assert.Equal(t, reporting.Palette[i%len(reporting.Palette)], s.Color)
	}
	assert.Equal(t, reporting.Palette[0], first[24].Color, "palette wraps")
}
