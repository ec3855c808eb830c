package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/infra/observability"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// gatedSource blocks each call until its gate for the filter is released.
type gatedSource struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	started chan string
	fail    map[string]error
}

func newGatedSource() *gatedSource {
	return &gatedSource{
		gates:   make(map[string]chan struct{}),
		started: make(chan string, 16),
		fail:    make(map[string]error),
	}
}

func (g *gatedSource) gate(key string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[key]
	if !ok {
		ch = make(chan struct{})
		g.gates[key] = ch
	}
	return ch
}

func (g *gatedSource) release(key string) { close(g.gate(key)) }

func (g *gatedSource) wait(ctx context.Context, key string) error {
	g.started <- key
	// Ignore cancellation so a stale load still completes and must be discarded.
	<-g.gate(key)
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fail[key]
}

func (g *gatedSource) Overview(ctx context.Context, _ domain.Session, filter domain.Filter) (*domain.Overview, error) {
	if err := g.wait(ctx, filter.String()); err != nil {
		return nil, err
	}
	return &domain.Overview{
		Summary:   &domain.PeriodReport{Filter: filter},
		Breakdown: &domain.BreakdownReport{Filter: filter},
	}, nil
}

func (g *gatedSource) CategoryTransactions(ctx context.Context, _ domain.Session, filter domain.Filter, categoryID int64) ([]domain.TransactionView, error) {
	if err := g.wait(ctx, "detail"); err != nil {
		return nil, err
	}
	return []domain.TransactionView{{Transaction: domain.Transaction{ID: categoryID}}}, nil
}

type result struct {
	ov  *domain.Overview
	err error
}

func newDashboard(src service.DashboardSource) (*service.Dashboard, *observability.Metrics) {
	m := observability.NewMetrics()
	return service.NewDashboard(src, testSession, domain.Preferences{Theme: domain.ThemeLight}, m, zap.NewNop()), m
}

func awaitStart(t *testing.T, src *gatedSource, want string) {
	t.Helper()
	select {
	case got := <-src.started:
		require.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("load %q never started", want)
	}
}

func TestDashboard_LatestSelectionWins(t *testing.T) {
	src := newGatedSource()
	d, metrics := newDashboard(src)
	jan := domain.SingleMonth(mustMonth("2025-01"))
	feb := domain.SingleMonth(mustMonth("2025-02"))

	first := make(chan result, 1)
	go func() {
		ov, err := d.Select(context.Background(), jan)
		first <- result{ov, err}
	}()
	awaitStart(t, src, "2025-01")

	second := make(chan result, 1)
	go func() {
		ov, err := d.Select(context.Background(), feb)
		second <- result{ov, err}
	}()
	awaitStart(t, src, "2025-02")

	// The newer request completes first; the older one arrives late.
	src.release("2025-02")
	r2 := <-second
	require.NoError(t, r2.err)
	src.release("2025-01")
	r1 := <-first

	assert.ErrorIs(t, r1.err, service.ErrSuperseded)
	assert.Nil(t, r1.ov)

	st := d.State()
	assert.Equal(t, feb, st.Filter)
	require.NotNil(t, st.Overview)
	assert.Equal(t, feb, st.Overview.Summary.Filter)
	assert.False(t, st.Loading)
	assert.Equal(t, int64(1), metrics.GetUpstreamSnapshot().SupersededResults)
}

func TestDashboard_ErrorKeepsLastOverview(t *testing.T) {
	src := newGatedSource()
	d, _ := newDashboard(src)
	jan := domain.SingleMonth(mustMonth("2025-01"))
	feb := domain.SingleMonth(mustMonth("2025-02"))
	src.release("2025-01")
	src.release("2025-02")
	src.fail["2025-02"] = &domain.ErrTimeout{Operation: "transactions"}

	_, err := d.Select(context.Background(), jan)
	require.NoError(t, err)
	<-src.started

	_, err = d.Select(context.Background(), feb)
	<-src.started
	var timeout *domain.ErrTimeout
	require.True(t, errors.As(err, &timeout))

	st := d.State()
	assert.Equal(t, feb, st.Filter)
	assert.Equal(t, jan, st.Overview.Summary.Filter, "previous overview stays visible")
	assert.Error(t, st.Err)
	assert.False(t, st.Loading)
}

func TestDashboard_CloseCategoryDiscardsPendingDetail(t *testing.T) {
	src := newGatedSource()
	d, _ := newDashboard(src)

	done := make(chan error, 1)
	go func() {
		_, err := d.OpenCategory(context.Background(), 7)
		done <- err
	}()
	awaitStart(t, src, "detail")
	assert.Equal(t, int64(7), d.State().OpenCategory)
	assert.True(t, d.State().DetailLoading)

	d.CloseCategory()
	src.release("detail")

	assert.ErrorIs(t, <-done, service.ErrSuperseded)
	st := d.State()
	assert.Zero(t, st.OpenCategory)
	assert.Nil(t, st.DetailItems)
	assert.False(t, st.DetailLoading)
}

func TestDashboard_ChangingFilterClosesDetail(t *testing.T) {
	src := newGatedSource()
	d, _ := newDashboard(src)
	src.release("detail")
	src.release("last6m")
	src.release("2025-01")

	items, err := d.OpenCategory(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, items, 1)
	<-src.started

	// Same filter keeps the panel.
	_, err = d.Refresh(context.Background())
	require.NoError(t, err)
	<-src.started
	assert.Equal(t, int64(3), d.State().OpenCategory)

	_, err = d.Select(context.Background(), domain.SingleMonth(mustMonth("2025-01")))
	require.NoError(t, err)
	<-src.started
	assert.Zero(t, d.State().OpenCategory)
}

func TestDashboard_StateIsACopy(t *testing.T) {
	src := newGatedSource()
	d, _ := newDashboard(src)
	src.release("detail")

	_, err := d.OpenCategory(context.Background(), 5)
	require.NoError(t, err)

	st := d.State()
	st.DetailItems[0].ID = 999
	assert.Equal(t, int64(5), d.State().DetailItems[0].ID)

	d.SetPreferences(domain.Preferences{Theme: domain.ThemeDark})
	assert.Equal(t, domain.ThemeDark, d.State().Preferences.Theme)
}

func TestDashboard_WithReportService(t *testing.T) {
	f := newFixture(dashboardBackend())
	d := service.NewDashboard(f.reports, testSession, domain.Preferences{}, f.metrics, zap.NewNop())

	ov, err := d.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.Last6Months(), d.State().Filter)
	assert.Len(t, ov.Summary.Buckets, 6)
}
