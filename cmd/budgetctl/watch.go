package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/service"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func watchCmd() *cobra.Command {
	var rangeFlag string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-print the dashboard overview periodically",
		Long: `Keep a dashboard view open and refresh it on an interval until interrupted.
A failed refresh keeps the last good overview on screen.`,
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

			d := service.NewDashboard(a.reports, a.session, a.prefs, a.metrics, a.logger)
			interval := viper.GetDuration("watch.interval")
			if interval <= 0 {
				interval = time.Minute
			}
			return watch(cmd.Context(), d, filter, interval, cmd.OutOrStdout(), a.logger)
		},
	}

	cmd.Flags().StringVarP(&rangeFlag, "range", "r", "last6m", "last6m or a month (YYYY-MM)")
	cmd.Flags().Duration("interval", time.Minute, "refresh interval")
	_ = viper.BindPFlag("watch.interval", cmd.Flags().Lookup("interval"))
	return cmd
}

func watch(ctx context.Context, d *service.Dashboard, filter domain.Filter, interval time.Duration, out io.Writer, logger *zap.Logger) error {
	if _, err := d.Select(ctx, filter); err != nil && !errors.Is(err, service.ErrSuperseded) {
		logger.Warn("initial load failed", zap.Error(err))
	}
	if err := printState(out, d.State()); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := d.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if !errors.Is(err, service.ErrSuperseded) {
					logger.Warn("refresh failed", zap.Error(err))
				}
			}
			if err := printState(out, d.State()); err != nil {
				return err
			}
		}
	}
}

func printState(out io.Writer, st service.DashboardState) error {
	if viper.GetBool("output.json") {
		return writeJSON(out, st.Overview)
	}
	if st.Overview == nil {
		_, err := fmt.Fprintf(out, "no data yet: %v\n", st.Err)
		return err
	}
	fmt.Fprintf(out, "\n== %s ==\n", st.Overview.AsOf.Format(time.RFC1123))
	if st.Err != nil {
		fmt.Fprintf(out, "(showing last good data, refresh failed: %v)\n", st.Err)
	}
	if err := renderSummary(out, st.Overview.Summary); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return renderBreakdown(out, st.Overview.Breakdown)
}
