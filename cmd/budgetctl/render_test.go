package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSummary(t *testing.T) {
	jan := domain.NewMonth(2025, time.January)
	report := &domain.PeriodReport{
		Filter: domain.SingleMonth(jan),
		From:   jan.Start(),
		To:     jan.End(),
		Buckets: []domain.PeriodBucket{{
			Month:   jan,
			Income:  decimal.NewFromInt(3000),
			Expense: decimal.RequireFromString("1250.5"),
			Net:     decimal.RequireFromString("1749.5"),
		}},
		TotalIncome:  decimal.NewFromInt(3000),
		TotalExpense: decimal.RequireFromString("1250.5"),
		Net:          decimal.RequireFromString("1749.5"),
	}

	var buf bytes.Buffer
	require.NoError(t, renderSummary(&buf, report))

	out := buf.String()
	assert.Contains(t, out, "Summary 2025-01 (2025-01-01 to 2025-01-31)")
	assert.Contains(t, out, "3000.00")
	assert.Contains(t, out, "1250.50")
	assert.Contains(t, out, "TOTAL")
}

func TestRenderBreakdown_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderBreakdown(&buf, &domain.BreakdownReport{Filter: domain.Last6Months()}))

	assert.Contains(t, buf.String(), "No budgeted expenses")
}

func TestRenderBudgets(t *testing.T) {
	mar := domain.NewMonth(2025, time.March)
	last := domain.NewDate(2025, time.March, 9)
	budgets := []domain.BudgetUtilization{{
		Budget:       domain.Budget{ID: 1, CategoryID: 1, Amount: decimal.NewFromInt(500), CycleMonth: mar},
		CategoryName: "Food",
		Spent:        decimal.NewFromInt(600),
		Remaining:    decimal.NewFromInt(-100),
		Percentage:   100,
		Band:         domain.BandOver,
		LastPaidDate: &last,
	}}

	var buf bytes.Buffer
	require.NoError(t, renderBudgets(&buf, mar, budgets))

	out := buf.String()
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "-100.00")
	assert.Contains(t, out, "100%")
	assert.Contains(t, out, "over")
	assert.Contains(t, out, "2025-03-09")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, domain.Category{ID: 3, Name: "Rent"}))

	assert.JSONEq(t, `{"id":3,"name":"Rent"}`, buf.String())
}
