package service

import (
	"context"
	"errors"
	"sync"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/infra/observability"

	"go.uber.org/zap"
)

// ErrSuperseded is returned by a load whose result was discarded because a
// newer request for the same view started after it.
var ErrSuperseded = errors.New("result superseded by a newer request")

// DashboardSource is what a Dashboard loads from. *ReportService satisfies it.
type DashboardSource interface {
	Overview(ctx context.Context, sess domain.Session, filter domain.Filter) (*domain.Overview, error)
	CategoryTransactions(ctx context.Context, sess domain.Session, filter domain.Filter, categoryID int64) ([]domain.TransactionView, error)
}

// DashboardState is a snapshot of a Dashboard. Overview and DetailItems are
// never mutated after being committed, so snapshots may be shared.
type DashboardState struct {
	Filter      domain.Filter
	Overview    *domain.Overview
	Loading     bool
	Err         error
	Preferences domain.Preferences

	OpenCategory  int64
	DetailLoading bool
	DetailItems   []domain.TransactionView
	DetailErr     error
}

// Dashboard is the stateful report view of one session. Only the latest
// request of each kind may commit its result: starting a load cancels the
// one in flight, and a load that finishes after being replaced returns
// ErrSuperseded without touching the state.
type Dashboard struct {
	source  DashboardSource
	session domain.Session
	metrics *observability.Metrics
	logger  *zap.Logger

	mu           sync.Mutex
	state        DashboardState
	seq          uint64
	cancel       context.CancelFunc
	detailSeq    uint64
	detailCancel context.CancelFunc
}

// NewDashboard creates a view for sess starting on the last-6-months filter.
func NewDashboard(source DashboardSource, sess domain.Session, prefs domain.Preferences, metrics *observability.Metrics, logger *zap.Logger) *Dashboard {
	return &Dashboard{
		source:  source,
		session: sess,
		metrics: metrics,
		logger:  logger,
		state: DashboardState{
			Filter:      domain.Last6Months(),
			Preferences: prefs,
		},
	}
}

// Select switches the view to filter and loads its overview.
func (d *Dashboard) Select(ctx context.Context, filter domain.Filter) (*domain.Overview, error) {
	d.mu.Lock()
	d.seq++
	seq := d.seq
	if d.cancel != nil {
		d.cancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	if filter != d.state.Filter {
		// Detail rows belong to the previous range.
		d.closeCategoryLocked()
	}
	d.state.Filter = filter
	d.state.Loading = true
	d.mu.Unlock()

	ov, err := d.source.Overview(loadCtx, d.session, filter)

	d.mu.Lock()
	defer d.mu.Unlock()
	cancel()
	if seq != d.seq {
		d.metrics.IncrSuperseded()
		d.logger.Debug("dashboard load superseded", zap.String("range", filter.String()))
		return nil, ErrSuperseded
	}
	d.cancel = nil
	d.state.Loading = false
	if err != nil {
		// Keep the last good overview; never show a partial one.
		d.state.Err = err
		return nil, err
	}
	d.state.Overview = ov
	d.state.Err = nil
	return ov, nil
}

// Refresh reloads the current filter, e.g. when the view becomes active again.
func (d *Dashboard) Refresh(ctx context.Context) (*domain.Overview, error) {
	d.mu.Lock()
	filter := d.state.Filter
	d.mu.Unlock()

	return d.Select(ctx, filter)
}

// OpenCategory loads the detail panel of one category for the current filter.
func (d *Dashboard) OpenCategory(ctx context.Context, categoryID int64) ([]domain.TransactionView, error) {
	d.mu.Lock()
	d.detailSeq++
	seq := d.detailSeq
	if d.detailCancel != nil {
		d.detailCancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	d.detailCancel = cancel
	filter := d.state.Filter
	d.state.OpenCategory = categoryID
	d.state.DetailLoading = true
	d.state.DetailItems = nil
	d.state.DetailErr = nil
	d.mu.Unlock()

	items, err := d.source.CategoryTransactions(loadCtx, d.session, filter, categoryID)

	d.mu.Lock()
	defer d.mu.Unlock()
	cancel()
	if seq != d.detailSeq {
		d.metrics.IncrSuperseded()
		return nil, ErrSuperseded
	}
	d.detailCancel = nil
	d.state.DetailLoading = false
	if err != nil {
		d.state.DetailErr = err
		return nil, err
	}
	d.state.DetailItems = items
	return items, nil
}

// CloseCategory closes the detail panel, cancelling and discarding any pending load.
func (d *Dashboard) CloseCategory() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closeCategoryLocked()
}

func (d *Dashboard) closeCategoryLocked() {
	d.detailSeq++
	if d.detailCancel != nil {
		d.detailCancel()
		d.detailCancel = nil
	}
	d.state.OpenCategory = 0
	d.state.DetailLoading = false
	d.state.DetailItems = nil
	d.state.DetailErr = nil
}

// SetPreferences replaces the view's presentation preferences.
func (d *Dashboard) SetPreferences(p domain.Preferences) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.state.Preferences = p
}

// State returns a snapshot of the view.
func (d *Dashboard) State() DashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.state
	if s.DetailItems != nil {
		s.DetailItems = append([]domain.TransactionView(nil), s.DetailItems...)
	}
	return s
}
