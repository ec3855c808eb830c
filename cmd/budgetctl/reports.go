package main

import (
	"fmt"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func summaryCmd() *cobra.Command {
	var rangeFlag string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Income and budgeted expenses per month",
		Long: `Print monthly income and expense totals. Expenses only count when their
category has a budget for the same month.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := domain.ParseFilter(rangeFlag)
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.reports.Summary(cmd.Context(), a.session, filter)
			if err != nil {
				return fmt.Errorf("summary: %w", err)
			}
			if viper.GetBool("output.json") {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			return renderSummary(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVarP(&rangeFlag, "range", "r", "last6m", "last6m or a month (YYYY-MM)")
	return cmd
}

func breakdownCmd() *cobra.Command {
	var rangeFlag string

	cmd := &cobra.Command{
		Use:   "breakdown",
		Short: "Expense distribution across budgeted categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := domain.ParseFilter(rangeFlag)
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.reports.Breakdown(cmd.Context(), a.session, filter)
			if err != nil {
				return fmt.Errorf("breakdown: %w", err)
			}
			if viper.GetBool("output.json") {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			return renderBreakdown(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVarP(&rangeFlag, "range", "r", "last6m", "last6m or a month (YYYY-MM)")
	return cmd
}

func budgetsCmd() *cobra.Command {
	var monthFlag string

	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Budgets of a month reconciled against spending",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var month domain.Month
			if monthFlag != "" {
				m, err := domain.ParseMonth(monthFlag)
				if err != nil {
					return err
				}
				month = m
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			budgets, err := a.budgets.List(cmd.Context(), a.session, month)
			if err != nil {
				return fmt.Errorf("budgets: %w", err)
			}
			if viper.GetBool("output.json") {
				return writeJSON(cmd.OutOrStdout(), budgets)
			}
			if month.IsZero() && len(budgets) > 0 {
				month = budgets[0].Budget.CycleMonth
			}
			return renderBudgets(cmd.OutOrStdout(), month, budgets)
		},
	}

	cmd.Flags().StringVarP(&monthFlag, "month", "m", "", "cycle month (YYYY-MM, default current month)")
	return cmd
}
