package domain

import (
	"fmt"
	"strings"
	"time"
)

// Month identifies a calendar month, formatted "YYYY-MM".
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth normalizes year/month into a valid Month (e.g. month 13 rolls over).
func NewMonth(year int, month time.Month) Month {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Month: t.Month()}
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses "YYYY-MM" (a single-digit month is accepted and padded).
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if len(s) > 7 {
		// Tolerate full dates such as "2025-01-01".
		if d, err := ParseDate(s); err == nil {
			return d.Month(), nil
		}
	}
	for _, layout := range []string{"2006-01", "2006-1"} {
		if t, err := time.Parse(layout, s); err == nil {
			return MonthOf(t), nil
		}
	}
	return Month{}, fmt.Errorf("invalid month %q: expected YYYY-MM", s)
}

func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// IsZero reports whether m is unset.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// AddMonths returns the month n months after m (n may be negative).
func (m Month) AddMonths(n int) Month {
	return NewMonth(m.Year, m.Month+time.Month(n))
}

// Before reports whether m is earlier than o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// Start is the first day of the month.
func (m Month) Start() Date {
	return NewDate(m.Year, m.Month, 1)
}

// End is the last day of the month.
func (m Month) End() Date {
	return NewDate(m.Year, m.Month+1, 0)
}

// MarshalText implements encoding.TextMarshaler.
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input leaves m zero.
func (m *Month) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*m = Month{}
		return nil
	}
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// LastMonths returns the n consecutive months ending at the month of now, oldest first.
func LastMonths(now time.Time, n int) []Month {
	end := MonthOf(now)
	months := make([]Month, 0, n)
	for i := n - 1; i >= 0; i-- {
		months = append(months, end.AddMonths(-i))
	}
	return months
}

// ============================================================
// Dates
// ============================================================

// Date is a civil calendar date. It always prints zero-padded as YYYY-MM-DD,
// so string order and chronological order agree.
type Date struct {
	t time.Time
}

const dateLayout = "2006-01-02"

// dateLayouts are tried in order when parsing upstream date values.
var dateLayouts = []string{
	dateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-1-2",
	"2006/01/02",
}

// NewDate builds a normalized date (out-of-range days roll over like time.Date).
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the civil date of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses ISO dates and timestamps, keeping the calendar day as written.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

// IsZero reports whether d is unset.
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return d.t
}

// Month returns the calendar month containing d.
func (d Date) Month() Month {
	return MonthOf(d.t)
}

// Before reports whether d is earlier than o.
func (d Date) Before(o Date) bool {
	return d.t.Before(o.t)
}

// After reports whether d is later than o.
func (d Date) After(o Date) bool {
	return d.t.After(o.t)
}

// Within reports whether start <= d <= end. Zero bounds are open.
func (d Date) Within(start, end Date) bool {
	if !start.IsZero() && d.Before(start) {
		return false
	}
	if !end.IsZero() && d.After(end) {
		return false
	}
	return true
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
