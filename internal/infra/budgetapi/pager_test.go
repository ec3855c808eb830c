package budgetapi

import (
	"context"
	"errors"
	"testing"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page(n int, meta map[string]any) any {
	items := make([]any, n)
	for i := range items {
		items[i] = map[string]any{"id": float64(i + 1)}
	}
	out := map[string]any{"data": items}
	if meta != nil {
		out["pagination"] = meta
	}
	return out
}

func TestFetchAll_StopsOnShortPage(t *testing.T) {
	for k := 0; k <= 4; k++ {
		calls := 0
		records, err := NewPager().FetchAll(context.Background(), "transactions", func(_ context.Context, p, limit int) (any, error) {
			calls++
			assert.Equal(t, DefaultPageSize, limit)
			if p <= k {
				return page(limit, nil), nil
			}
			return page(7, nil), nil
		})

		require.NoError(t, err)
		assert.Equal(t, k+1, calls, "k=%d", k)
		assert.Len(t, records, k*DefaultPageSize+7)
	}
}

func TestFetchAll_SafetyCap(t *testing.T) {
	calls := 0
	records, err := NewPager().FetchAll(context.Background(), "transactions", func(_ context.Context, _, limit int) (any, error) {
		calls++
		return page(limit, nil), nil
	})

	require.NoError(t, err)
	assert.Equal(t, DefaultMaxPages, calls)
	assert.Len(t, records, DefaultMaxPages*DefaultPageSize)
}

func TestFetchAll_MetadataLastPage(t *testing.T) {
	calls := 0
	_, err := NewPager().FetchAll(context.Background(), "transactions", func(_ context.Context, p, limit int) (any, error) {
		calls++
		return page(limit, map[string]any{"page": float64(p), "totalPages": float64(2)}), nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestFetchAll_MetadataDerivedFromTotal(t *testing.T) {
	calls := 0
	_, err := NewPager().FetchAll(context.Background(), "transactions", func(_ context.Context, p, limit int) (any, error) {
		calls++
		return page(limit, map[string]any{"page": float64(p), "limit": float64(limit), "total": float64(300)}), nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestFetchAll_EmptyListing(t *testing.T) {
	records, err := NewPager().FetchAll(context.Background(), "transactions", func(context.Context, int, int) (any, error) {
		return map[string]any{"data": []any{}}, nil
	})

	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestFetchAll_FailureDropsPartialResults(t *testing.T) {
	cause := errors.New("connection reset")
	calls := 0
	records, err := NewPager().FetchAll(context.Background(), "transactions", func(_ context.Context, p, limit int) (any, error) {
		calls++
		if p == 3 {
			return nil, cause
		}
		return page(limit, nil), nil
	})

	assert.Nil(t, records)
	assert.Equal(t, 3, calls, "no retries")
	var fetchErr *domain.ErrFetchFailed
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 3, fetchErr.Page)
	assert.Equal(t, "transactions", fetchErr.Resource)
	assert.ErrorIs(t, err, cause)
}

func TestFetchAll_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := NewPager().FetchAll(ctx, "transactions", func(_ context.Context, _, limit int) (any, error) {
		calls++
		cancel()
		return page(limit, nil), nil
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchAll_OnPageAndCustomSize(t *testing.T) {
	var seen []int
	p := Pager{PageSize: 10, MaxPages: 3, OnPage: func(n int) { seen = append(seen, n) }}

	_, err := p.FetchAll(context.Background(), "transactions", func(_ context.Context, _, limit int) (any, error) {
		assert.Equal(t, 10, limit)
		return page(limit, nil), nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
}
