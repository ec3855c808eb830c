package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Budget utilization
// ============================================================

// Band is the presentation threshold state of a budget.
type Band string

const (
	BandNormal  Band = "normal"
	BandWarning Band = "warning"
	BandOver    Band = "over"
)

// WarningThresholdPct is the utilization at which a budget enters the warning band.
const WarningThresholdPct = 80

// BandFor classifies a utilization percentage.
func BandFor(percentage int) Band {
	switch {
	case percentage >= 100:
		return BandOver
	case percentage >= WarningThresholdPct:
		return BandWarning
	default:
		return BandNormal
	}
}

// BudgetUtilization is a budget reconciled against its cycle month's spending.
// Spent and Remaining are never clamped; Percentage is clamped to [0, 100].
type BudgetUtilization struct {
	Budget       Budget          `json:"budget"`
	CategoryName string          `json:"category_name,omitempty"`
	Spent        decimal.Decimal `json:"spent"`
	Remaining    decimal.Decimal `json:"remaining"`
	Percentage   int             `json:"percentage"`
	Band         Band            `json:"band"`
	LastPaidDate *Date           `json:"last_paid_date,omitempty"`
}

// ============================================================
// Period report (income vs. budget-gated expense per month)
// ============================================================

// PeriodBucket holds the totals of one calendar month.
type PeriodBucket struct {
	Month   Month           `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

// PeriodReport is the month-bucketed income/expense summary for a range.
type PeriodReport struct {
	Filter       Filter          `json:"filter"`
	From         Date            `json:"from"`
	To           Date            `json:"to"`
	Buckets      []PeriodBucket  `json:"buckets"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Net          decimal.Decimal `json:"net"`
}

// ============================================================
// Category breakdown
// ============================================================

// CategoryShare is one slice of the expense distribution.
type CategoryShare struct {
	CategoryID int64           `json:"category_id"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage float64         `json:"percentage"`
	Rank       int             `json:"rank"`
	Color      string          `json:"color"`
}

// BreakdownReport is the ranked expense distribution across budgeted categories.
type BreakdownReport struct {
	Filter Filter          `json:"filter"`
	From   Date            `json:"from"`
	To     Date            `json:"to"`
	Shares []CategoryShare `json:"shares"`
	Total  decimal.Decimal `json:"total"`
}

// Overview combines the period report and breakdown computed from one fetch.
type Overview struct {
	Summary   *PeriodReport    `json:"summary"`
	Breakdown *BreakdownReport `json:"breakdown"`
	AsOf      time.Time        `json:"as_of"`
}

// ============================================================
// Range filter
// ============================================================

// TrailingMonths is the length of the "last 6 months" window.
const TrailingMonths = 6

// Filter selects the months a report covers: either a single month
// or a trailing window ending at the current month.
type Filter struct {
	Month    Month
	Trailing int
}

// Last6Months is the default dashboard filter.
func Last6Months() Filter {
	return Filter{Trailing: TrailingMonths}
}

// SingleMonth selects exactly one month.
func SingleMonth(m Month) Filter {
	return Filter{Month: m}
}

// ParseFilter accepts "last6m" / "LAST_6M" (and empty) or a "YYYY-MM" month.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last6m", "last_6m", "last-6m", "6months":
		return Last6Months(), nil
	}
	m, err := ParseMonth(s)
	if err != nil {
		return Filter{}, &ErrValidation{Field: "range", Message: err.Error()}
	}
	return SingleMonth(m), nil
}

// Months expands the filter into month tokens, oldest first.
func (f Filter) Months(now time.Time) []Month {
	if f.Trailing > 0 {
		return LastMonths(now, f.Trailing)
	}
	return []Month{f.Month}
}

// DateRange returns the first and last day covered by the filter.
func (f Filter) DateRange(now time.Time) (Date, Date) {
	months := f.Months(now)
	return months[0].Start(), months[len(months)-1].End()
}

func (f Filter) String() string {
	if f.Trailing > 0 {
		return fmt.Sprintf("last%dm", f.Trailing)
	}
	return f.Month.String()
}

// MarshalText implements encoding.TextMarshaler.
func (f Filter) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using ParseFilter.
func (f *Filter) UnmarshalText(b []byte) error {
	parsed, err := ParseFilter(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
