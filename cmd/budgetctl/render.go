package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderSummary(w io.Writer, r *domain.PeriodReport) error {
	fmt.Fprintf(w, "Summary %s (%s to %s)\n\n", r.Filter, r.From, r.To)

	tw := newTable(w)
	fmt.Fprintf(tw, "MONTH\tINCOME\tEXPENSE\tNET\n")
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", strings.Repeat("-", 7), strings.Repeat("-", 10), strings.Repeat("-", 10), strings.Repeat("-", 10))
	for _, b := range r.Buckets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.Month, b.Income.StringFixed(2), b.Expense.StringFixed(2), b.Net.StringFixed(2))
	}
	fmt.Fprintf(tw, "TOTAL\t%s\t%s\t%s\n", r.TotalIncome.StringFixed(2), r.TotalExpense.StringFixed(2), r.Net.StringFixed(2))
	return tw.Flush()
}

func renderBreakdown(w io.Writer, r *domain.BreakdownReport) error {
	fmt.Fprintf(w, "Expenses by category %s (%s to %s)\n\n", r.Filter, r.From, r.To)
	if len(r.Shares) == 0 {
		fmt.Fprintln(w, "No budgeted expenses in this range.")
		return nil
	}

	tw := newTable(w)
	fmt.Fprintf(tw, "#\tCATEGORY\tAMOUNT\tSHARE\tCOLOR\n")
	for _, s := range r.Shares {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f%%\t%s\n", s.Rank, s.Name, s.Amount.StringFixed(2), s.Percentage, s.Color)
	}
	fmt.Fprintf(tw, "\tTOTAL\t%s\t\t\n", r.Total.StringFixed(2))
	return tw.Flush()
}

func renderBudgets(w io.Writer, month domain.Month, budgets []domain.BudgetUtilization) error {
	fmt.Fprintf(w, "Budgets %s\n\n", month)
	if len(budgets) == 0 {
		fmt.Fprintln(w, "No budgets for this month.")
		return nil
	}

	tw := newTable(w)
	fmt.Fprintf(tw, "CATEGORY\tBUDGET\tSPENT\tREMAINING\tUSED\tSTATUS\tLAST PAID\n")
	for _, u := range budgets {
		last := "-"
		if u.LastPaidDate != nil {
			last = u.LastPaidDate.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d%%\t%s\t%s\n",
			u.CategoryName,
			u.Budget.Amount.StringFixed(2),
			u.Spent.StringFixed(2),
			u.Remaining.StringFixed(2),
			u.Percentage,
			u.Band,
			last,
		)
	}
	return tw.Flush()
}
